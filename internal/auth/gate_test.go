package auth

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/sheikh-saqib/credit-tracker/internal/config"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

func TestRoleGate(t *testing.T) {
	tests := []struct {
		name     string
		admin    string
		student  string
		password string
		want     models.Role
		wantErr  bool
	}{
		{"admin password", "teach", "learn", "teach", models.RoleAdmin, false},
		{"student password", "teach", "learn", "learn", models.RoleStudent, false},
		{"same password for both yields admin", "same", "same", "same", models.RoleAdmin, false},
		{"wrong password", "teach", "learn", "guess", models.RoleNone, true},
		{"empty password", "teach", "learn", "", models.RoleNone, true},
		{"prefix of a password", "teach", "learn", "tea", models.RoleNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := NewRoleGate(tt.admin, tt.student).Authenticate(tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("err = %v, want ErrInvalidCredentials", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if role != tt.want {
				t.Fatalf("role = %q, want %q", role, tt.want)
			}
		})
	}
}

func TestSingleGateGrantsAdmin(t *testing.T) {
	g := NewSingleGate("secret")

	role, err := g.Authenticate("secret")
	if err != nil || role != models.RoleAdmin {
		t.Fatalf("Authenticate = %q, %v; want admin", role, err)
	}
	if _, err := g.Authenticate("Secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong case accepted: %v", err)
	}
}

func TestUnsetSecretNeverMatches(t *testing.T) {
	g := NewRoleGate("teach", "")
	if _, err := g.Authenticate(""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty password accepted")
	}
}

func TestBcryptSecrets(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("teach"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	g := NewRoleGate(string(hash), "learn")

	if role, err := g.Authenticate("teach"); err != nil || role != models.RoleAdmin {
		t.Fatalf("Authenticate(teach) = %q, %v", role, err)
	}
	if _, err := g.Authenticate(string(hash)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("the hash itself was accepted as a password")
	}
	if role, _ := g.Authenticate("learn"); role != models.RoleStudent {
		t.Fatalf("student role = %q", role)
	}
}

func TestNewGateFromConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)

	single := NewGate(config.AuthConfig{Password: "one"}, logger)
	if role, _ := single.Authenticate("one"); role != models.RoleAdmin {
		t.Fatalf("single gate role = %q", role)
	}

	roles := NewGate(config.AuthConfig{Password: "one", AdminPassword: "a", StudentPassword: "s"}, logger)
	if _, err := roles.Authenticate("one"); err == nil {
		t.Fatalf("shared password accepted while role passwords are configured")
	}
	if role, _ := roles.Authenticate("s"); role != models.RoleStudent {
		t.Fatalf("student role = %q", role)
	}
}

func TestNewGateWarnsAboutIgnoredRoleSecret(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	g := NewGate(config.AuthConfig{Password: "one", AdminPassword: "a"}, zap.New(core))

	if _, err := g.Authenticate("a"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("lone admin password granted a role")
	}
	if n := logs.FilterMessageSnippet("must both be set").Len(); n != 1 {
		t.Fatalf("%d warnings about the ignored role secret, want 1", n)
	}
}
