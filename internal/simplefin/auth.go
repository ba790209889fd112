package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoAuth is returned when no access URL is saved and no setup token was given.
var ErrNoAuth = errors.New("no SimpleFIN access URL saved")

// AuthState is the saved result of claiming a setup token.
type AuthState struct {
	ClaimedAt time.Time `json:"claimed_at"`
	AccessURL string    `json:"access_url"`
	TokenHint string    `json:"token_hint"`
}

// LoadOrClaim returns the access URL saved at path. When none is saved it
// claims token, saves the result and returns it.
func LoadOrClaim(ctx context.Context, hc *http.Client, path, token string) (*AuthState, error) {
	state, err := LoadAuth(path)
	if err == nil && state.AccessURL != "" {
		slog.Info("Using saved SimpleFIN access URL",
			"claimed_at", state.ClaimedAt.Format("2006-01-02"),
			"state_file", path)
		return state, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if token == "" {
		return nil, ErrNoAuth
	}

	slog.Info("Claiming SimpleFIN setup token")
	accessURL, err := Claim(ctx, hc, token)
	if err != nil {
		return nil, err
	}

	state = &AuthState{
		AccessURL: accessURL,
		ClaimedAt: time.Now().UTC(),
		TokenHint: tokenHint(token),
	}
	if err := SaveAuth(path, state); err != nil {
		return nil, fmt.Errorf("failed to save auth state: %w", err)
	}
	slog.Info("Saved SimpleFIN access URL", "state_file", path)
	return state, nil
}

// Claim exchanges a base64 setup token for an access URL. A token can be
// claimed only once.
func Claim(ctx context.Context, hc *http.Client, token string) (string, error) {
	claimURL, err := decodeToken(token)
	if err != nil {
		return "", err
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}
	req.Header.Set("Content-Length", "0")

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim access URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read access URL: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to claim SimpleFIN access: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	accessURL := strings.TrimSpace(string(body))
	if err := validateURL(accessURL); err != nil {
		return "", fmt.Errorf("invalid access URL received: %w", err)
	}
	return accessURL, nil
}

func decodeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return "", fmt.Errorf("failed to decode SimpleFIN token: %w", err)
		}
	}
	claimURL := strings.TrimSpace(string(decoded))
	if err := validateURL(claimURL); err != nil {
		return "", fmt.Errorf("decoded token is not a valid URL: %w", err)
	}
	return claimURL, nil
}

// LoadAuth reads a saved AuthState.
func LoadAuth(path string) (*AuthState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("invalid auth state: %w", err)
	}
	return &state, nil
}

// SaveAuth writes state readable by the owner only.
func SaveAuth(path string, state *AuthState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// tokenHint keeps enough of a token to recognize it later.
func tokenHint(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-8:]
	}
	return "short_token"
}
