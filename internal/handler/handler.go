package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/auth"
	"github.com/sheikh-saqib/credit-tracker/internal/ledger"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
	"github.com/sheikh-saqib/credit-tracker/internal/reconcile"
)

type Handler struct {
	tracker  *ledger.Tracker
	roster   *ledger.Roster
	sessions *auth.Manager
	checker  *reconcile.Checker
	logger   *zap.Logger
}

func NewHandler(tracker *ledger.Tracker, roster *ledger.Roster, sessions *auth.Manager, checker *reconcile.Checker, logger *zap.Logger) *Handler {
	return &Handler{
		tracker:  tracker,
		roster:   roster,
		sessions: sessions,
		checker:  checker,
		logger:   logger.Named("http"),
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- session ----

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string      `json:"session_id"`
	Role      models.Role `json:"role"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// no Expires: the browser drops the cookie when its session ends
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	JSON(w, http.StatusOK, loginResponse{SessionID: session.ID, Role: session.Role})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	state := auth.FromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), state.Session.ID); err != nil {
		h.logger.Error("logout", zap.Error(err))
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	JSON(w, http.StatusOK, sessionView{Phase: auth.Unauthenticated.String()})
}

type sessionView struct {
	Phase           string      `json:"phase"`
	Role            models.Role `json:"role,omitempty"`
	SelectedStudent string      `json:"selected_student,omitempty"`
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	state := auth.FromContext(r.Context())
	JSON(w, http.StatusOK, sessionView{
		Phase:           state.Phase.String(),
		Role:            state.Role(),
		SelectedStudent: state.Session.SelectedStudent,
	})
}

// ---- single ledger ----

func (h *Handler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.tracker.Snapshot())
}

func (h *Handler) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.tracker.Draft())
}

type addTransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Ledger      models.Ledger      `json:"ledger"`
	Draft       models.Draft       `json:"draft"`
}

func (h *Handler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}

	tx, l, err := h.tracker.AddTransaction(draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, addTransactionResponse{Transaction: tx, Ledger: l, Draft: h.tracker.Draft()})
}

type deleteTransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Ledger      models.Ledger      `json:"ledger"`
}

func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	removed, err := h.tracker.DeleteTransaction(id, confirmed(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, deleteTransactionResponse{Transaction: removed, Ledger: h.tracker.Snapshot()})
}

func (h *Handler) HandleLedgerStream(w http.ResponseWriter, r *http.Request) {
	updates, stop := h.tracker.Watch()
	stream(w, r, h.logger, updates, stop)
}

// ---- roster ----

func (h *Handler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.roster.Snapshot())
}

func (h *Handler) HandleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.roster.Student(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, student)
}

// HandleGetSelected returns the student selected by this session, or no data
// when nothing is selected or the selected student was deleted elsewhere.
func (h *Handler) HandleGetSelected(w http.ResponseWriter, r *http.Request) {
	selected := auth.FromContext(r.Context()).Session.SelectedStudent
	if selected == "" {
		JSON(w, http.StatusOK, nil)
		return
	}
	student, err := h.roster.Student(selected)
	if err != nil {
		JSON(w, http.StatusOK, nil)
		return
	}
	JSON(w, http.StatusOK, student)
}

func (h *Handler) HandleSelectStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.roster.Student(id); err != nil {
		h.writeError(w, err)
		return
	}

	session, err := h.sessions.Select(r.Context(), auth.FromContext(r.Context()).Session, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, sessionView{
		Phase:           auth.Authenticated.String(),
		Role:            session.Role,
		SelectedStudent: session.SelectedStudent,
	})
}

type addStudentRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req addStudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	student, err := h.roster.AddStudent(req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, student)
}

func (h *Handler) HandleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session := auth.FromContext(r.Context()).Session

	selected, err := h.roster.DeleteStudent(id, session.SelectedStudent, confirmed(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if selected != session.SelectedStudent {
		if session, err = h.sessions.Select(r.Context(), session, selected); err != nil {
			h.logger.Error("clear selection", zap.Error(err))
		}
	}
	JSON(w, http.StatusOK, sessionView{
		Phase:           auth.Authenticated.String(),
		Role:            session.Role,
		SelectedStudent: selected,
	})
}

type studentTransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Student     models.Student     `json:"student"`
	Draft       *models.Draft      `json:"draft,omitempty"`
}

func (h *Handler) HandleAddStudentTransaction(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}

	id := chi.URLParam(r, "id")
	tx, student, err := h.roster.AddTransaction(id, draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	next := h.roster.Draft(id)
	JSON(w, http.StatusCreated, studentTransactionResponse{Transaction: tx, Student: student, Draft: &next})
}

func (h *Handler) HandleDeleteStudentTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := transactionID(w, r)
	if !ok {
		return
	}

	studentID := chi.URLParam(r, "id")
	removed, err := h.roster.DeleteTransaction(studentID, txID, confirmed(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	student, _ := h.roster.Student(studentID)
	JSON(w, http.StatusOK, studentTransactionResponse{Transaction: removed, Student: student})
}

func (h *Handler) HandleRosterStream(w http.ResponseWriter, r *http.Request) {
	updates, stop := h.roster.Watch()
	stream(w, r, h.logger, updates, stop)
}

// ---- maintenance ----

func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.checker.Run())
}

// ---- helpers ----

func transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "txID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "transaction id must be an integer")
		return 0, false
	}
	return id, true
}

// confirmed approves a deletion when the request carries confirm=true.
func confirmed(r *http.Request) ledger.Confirm {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return func(string) bool { return ok }
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case ledger.IsNotFound(err):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrNotConfirmed):
		Error(w, http.StatusConflict, "confirmation required: repeat with confirm=true")
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "Incorrect password")
	default:
		h.logger.Error("request failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
