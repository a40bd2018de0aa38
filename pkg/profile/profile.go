// Package profile implements the Profile Resolver component: resolving a
// Minecraft username to its canonical name and UUID via the Mojang
// profile API, classifying failures by HTTP status code over a plain
// net/http client.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/arguserr"
)

const (
	defaultLookupTimeout = 5 * time.Second
	mojangProfileBaseURL = "https://api.mojang.com/users/profiles/minecraft/"
)

// Resolver looks up canonical Minecraft profiles by username.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// New constructs a Resolver using the default Mojang API endpoint and a
// 5 second per-request timeout.
func New() *Resolver {
	return &Resolver{
		httpClient: &http.Client{},
		baseURL:    mojangProfileBaseURL,
		timeout:    defaultLookupTimeout,
	}
}

// Profile is the resolved identity for a Minecraft account.
type Profile struct {
	UUID          uuid.UUID
	CanonicalName string
}

type mojangProfileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolve looks up name and returns its canonical profile. Failures are
// always a *arguserr.ProfileLookupError so callers can branch on Class and
// Temporary without string matching.
func (r *Resolver) Resolve(ctx context.Context, name string) (Profile, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Profile{}, &arguserr.ProfileLookupError{
			Name:  name,
			Class: arguserr.ProfileLookupUnknown,
			Cause: fmt.Errorf("empty username"),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+url.PathEscape(trimmed), nil)
	if err != nil {
		return Profile{}, &arguserr.ProfileLookupError{
			Name:  name,
			Class: arguserr.ProfileLookupUnknown,
			Cause: err,
		}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Profile{}, &arguserr.ProfileLookupError{
			Name:      name,
			Class:     arguserr.ProfileLookupUnavailable,
			Temporary: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed mojangProfileResponse
		if readErr != nil {
			return Profile{}, &arguserr.ProfileLookupError{
				Name:       name,
				StatusCode: resp.StatusCode,
				Class:      arguserr.ProfileLookupUnknown,
				Cause:      readErr,
			}
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return Profile{}, &arguserr.ProfileLookupError{
				Name:       name,
				StatusCode: resp.StatusCode,
				Class:      arguserr.ProfileLookupUnknown,
				Cause:      err,
			}
		}
		id, err := parseMojangUUID(parsed.ID)
		if err != nil {
			return Profile{}, &arguserr.ProfileLookupError{
				Name:       name,
				StatusCode: resp.StatusCode,
				Class:      arguserr.ProfileLookupUnknown,
				Cause:      err,
			}
		}
		return Profile{UUID: id, CanonicalName: parsed.Name}, nil

	case http.StatusNoContent, http.StatusNotFound:
		return Profile{}, &arguserr.ProfileLookupError{
			Name:       name,
			StatusCode: resp.StatusCode,
			Class:      arguserr.ProfileLookupNotFound,
			Cause:      fmt.Errorf("no such Minecraft account"),
		}

	case http.StatusTooManyRequests:
		return Profile{}, &arguserr.ProfileLookupError{
			Name:       name,
			StatusCode: resp.StatusCode,
			Class:      arguserr.ProfileLookupRateLimited,
			Temporary:  true,
			Cause:      fmt.Errorf("rate limited by Mojang API"),
		}

	default:
		if resp.StatusCode >= 500 {
			return Profile{}, &arguserr.ProfileLookupError{
				Name:       name,
				StatusCode: resp.StatusCode,
				Class:      arguserr.ProfileLookupUnavailable,
				Temporary:  true,
				Cause:      fmt.Errorf("mojang API returned %d", resp.StatusCode),
			}
		}
		return Profile{}, &arguserr.ProfileLookupError{
			Name:       name,
			StatusCode: resp.StatusCode,
			Class:      arguserr.ProfileLookupUnknown,
			Cause:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
}

// parseMojangUUID parses Mojang's undashed 32-char hex profile id into a
// standard UUID.
func parseMojangUUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 32 {
		raw = raw[0:8] + "-" + raw[8:12] + "-" + raw[12:16] + "-" + raw[16:20] + "-" + raw[20:]
	}
	return uuid.Parse(raw)
}
