package reconcile

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/metrics"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

// Balances are kept incrementally, so a lost or replayed update leaves a
// balance that no longer matches its transactions. The Checker re-derives each
// balance from the transaction list and reports the difference.

type LedgerSource interface {
	Key() string
	Snapshot() models.Ledger
	Rebalance() (models.Ledger, bool)
}

type RosterSource interface {
	Key() string
	Snapshot() models.Roster
	Rebalance() []string
}

// Finding describes one ledger whose balance does not match its transactions.
type Finding struct {
	Document   string          `json:"document"`
	Student    string          `json:"student,omitempty"`
	Stored     decimal.Decimal `json:"stored"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Drift      decimal.Decimal `json:"drift"`
	Repaired   bool            `json:"repaired"`
}

type Report struct {
	Checked  int       `json:"checked"`
	Findings []Finding `json:"findings"`
}

type Checker struct {
	ledger LedgerSource
	roster RosterSource
	repair bool
	logger *zap.Logger
}

// NewChecker checks the given sources; either may be nil. With repair set,
// drifted balances are rewritten from their transactions.
func NewChecker(ledger LedgerSource, roster RosterSource, repair bool, logger *zap.Logger) *Checker {
	return &Checker{ledger: ledger, roster: roster, repair: repair, logger: logger.Named("reconcile")}
}

func (c *Checker) Run() Report {
	report := Report{Findings: []Finding{}}

	if c.ledger != nil {
		l := c.ledger.Snapshot()
		report.Checked++
		if f, drifted := check(c.ledger.Key(), "", l); drifted {
			if c.repair {
				_, f.Repaired = c.ledger.Rebalance()
			}
			report.Findings = append(report.Findings, f)
		}
	}

	if c.roster != nil {
		var drifted []Finding
		for _, s := range c.roster.Snapshot().Students {
			report.Checked++
			if f, bad := check(c.roster.Key(), s.ID, s.Ledger); bad {
				drifted = append(drifted, f)
			}
		}
		if c.repair && len(drifted) > 0 {
			repaired := make(map[string]bool)
			for _, id := range c.roster.Rebalance() {
				repaired[id] = true
			}
			for i := range drifted {
				drifted[i].Repaired = repaired[drifted[i].Student]
			}
		}
		report.Findings = append(report.Findings, drifted...)
	}

	for _, f := range report.Findings {
		c.logger.Warn("balance drift",
			zap.String("document", f.Document),
			zap.String("student", f.Student),
			zap.String("stored", f.Stored.String()),
			zap.String("recomputed", f.Recomputed.String()),
			zap.Bool("repaired", f.Repaired))
	}
	return report
}

func check(document, student string, l models.Ledger) (Finding, bool) {
	recomputed := l.Recomputed()
	drift := l.Balance.Sub(recomputed)
	drift64, _ := drift.Float64()
	metrics.BalanceDrift.WithLabelValues(document, student).Set(drift64)
	if drift.IsZero() {
		return Finding{}, false
	}
	return Finding{
		Document:   document,
		Student:    student,
		Stored:     l.Balance,
		Recomputed: recomputed,
		Drift:      drift,
	}, true
}

// Schedule runs the checker on a cron expression such as "@hourly" until the
// returned cron is stopped.
func (c *Checker) Schedule(expr string) (*cron.Cron, error) {
	sched := cron.New()
	_, err := sched.AddFunc(expr, func() {
		report := c.Run()
		c.logger.Info("reconciliation finished",
			zap.Int("checked", report.Checked),
			zap.Int("drifted", len(report.Findings)))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconciliation %q: %w", expr, err)
	}
	sched.Start()
	return sched, nil
}
