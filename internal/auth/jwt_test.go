package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/crave-grocer/api/internal/auth"
	"github.com/crave-grocer/api/internal/enum"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"

	token, err := auth.GenerateToken(secret, "voice-agent-1", enum.AgentRoleAgent, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.AgentID != "voice-agent-1" {
		t.Errorf("agent ID: got %v, want voice-agent-1", claims.AgentID)
	}
	if claims.Role != enum.AgentRoleAgent {
		t.Errorf("role: got %v, want %v", claims.Role, enum.AgentRoleAgent)
	}
	if claims.Subject != "voice-agent-1" {
		t.Errorf("subject: got %v", claims.Subject)
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := auth.GenerateToken("s", "a1", enum.AgentRoleAdmin, 0)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := auth.ValidateToken("s", token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != auth.DefaultTTL {
		t.Errorf("ttl: got %v, want %v", ttl, auth.DefaultTTL)
	}
}

func TestGenerateToken_MissingAgent(t *testing.T) {
	_, err := auth.GenerateToken("s", "", enum.AgentRoleAgent, time.Hour)
	if !errors.Is(err, auth.ErrMissingAgent) {
		t.Fatalf("expected ErrMissingAgent, got %v", err)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", "a1", enum.AgentRoleAgent, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestGenerateToken_NegativeTTLUsesDefault(t *testing.T) {
	token, err := auth.GenerateToken("s", "a1", enum.AgentRoleAgent, -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("s", token); err != nil {
		t.Fatalf("validate token: %v", err)
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
