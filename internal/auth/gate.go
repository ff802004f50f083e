package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sheikh-saqib/credit-tracker/internal/config"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

var ErrInvalidCredentials = errors.New("incorrect password")

// Gate turns a submitted password into a role.
//
// There is no lockout, rate limit or per-user identity: anyone who knows a
// secret gets its role. Do not reuse this gate where the data needs protecting
// from an adversary.
type Gate struct {
	secrets []roleSecret // checked in order, first match wins
}

type roleSecret struct {
	role   models.Role
	secret string
}

// NewSingleGate grants admin to the one shared password.
func NewSingleGate(password string) *Gate {
	return &Gate{secrets: []roleSecret{{models.RoleAdmin, password}}}
}

// NewRoleGate checks the admin password first, then the student password, so a
// password that matches both yields admin.
func NewRoleGate(adminPassword, studentPassword string) *Gate {
	return &Gate{secrets: []roleSecret{
		{models.RoleAdmin, adminPassword},
		{models.RoleStudent, studentPassword},
	}}
}

// NewGate picks the gate variant from configuration. The role-based gate wins
// when both admin and student passwords are set.
func NewGate(cfg config.AuthConfig, logger *zap.Logger) *Gate {
	var g *Gate
	if cfg.AdminPassword != "" && cfg.StudentPassword != "" {
		g = NewRoleGate(cfg.AdminPassword, cfg.StudentPassword)
	} else {
		if cfg.AdminPassword != "" || cfg.StudentPassword != "" {
			logger.Warn("ADMIN_PASSWORD and STUDENT_PASSWORD must both be set; using TRACKER_PASSWORD only")
		}
		g = NewSingleGate(cfg.Password)
	}
	for _, s := range g.secrets {
		if !isBcryptHash(s.secret) {
			logger.Warn("password is configured in clear text; consider a bcrypt hash",
				zap.String("role", string(s.role)))
		}
	}
	return g
}

// Authenticate returns the role of the first secret the password matches.
func (g *Gate) Authenticate(password string) (models.Role, error) {
	if password == "" {
		return models.RoleNone, ErrInvalidCredentials
	}
	for _, s := range g.secrets {
		if s.secret != "" && matches(s.secret, password) {
			return s.role, nil
		}
	}
	return models.RoleNone, ErrInvalidCredentials
}

func matches(secret, password string) bool {
	if isBcryptHash(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
