package validators

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type signup struct {
	Username string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
}

func TestValidateReportsFields(t *testing.T) {
	cv := NewValidator()

	err := cv.Validate(signup{Username: "ab", Email: "nope"})
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", he.Code)
	}
	msg := he.Message.(string)
	if !strings.Contains(msg, "Username failed on min=3") || !strings.Contains(msg, "Email failed on email") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestValidateAcceptsValid(t *testing.T) {
	if err := NewValidator().Validate(signup{Username: "alice", Email: "a@b.co"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
