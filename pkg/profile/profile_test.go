package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/small-frappuccino/argus/pkg/arguserr"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Resolver{httpClient: server.Client(), baseURL: server.URL + "/", timeout: defaultLookupTimeout}
}

func TestResolveSuccess(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"069a79f444e94726a5befca90e38aaf5","name":"Notch"}`))
	})

	profile, err := r.Resolve(context.Background(), "Notch")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if profile.CanonicalName != "Notch" {
		t.Fatalf("expected canonical name Notch, got %q", profile.CanonicalName)
	}
	if profile.UUID.String() != "069a79f4-44e9-4726-a5be-fca90e38aaf5" {
		t.Fatalf("expected the undashed id to be reformatted, got %s", profile.UUID.String())
	}
}

func TestResolveNotFound(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := r.Resolve(context.Background(), "nosuchplayer")
	var lookupErr *arguserr.ProfileLookupError
	if !errorsAs(err, &lookupErr) {
		t.Fatalf("expected a *ProfileLookupError, got %v (%T)", err, err)
	}
	if lookupErr.Class != arguserr.ProfileLookupNotFound {
		t.Fatalf("expected ProfileLookupNotFound, got %v", lookupErr.Class)
	}
	if lookupErr.Temporary {
		t.Fatal("expected a not-found lookup to not be marked temporary")
	}
}

func TestResolveRateLimited(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := r.Resolve(context.Background(), "Notch")
	var lookupErr *arguserr.ProfileLookupError
	if !errorsAs(err, &lookupErr) {
		t.Fatalf("expected a *ProfileLookupError, got %v (%T)", err, err)
	}
	if lookupErr.Class != arguserr.ProfileLookupRateLimited || !lookupErr.Temporary {
		t.Fatalf("expected a temporary rate-limited classification, got %+v", lookupErr)
	}
}

func TestResolveServerErrorIsTemporary(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := r.Resolve(context.Background(), "Notch")
	var lookupErr *arguserr.ProfileLookupError
	if !errorsAs(err, &lookupErr) {
		t.Fatalf("expected a *ProfileLookupError, got %v (%T)", err, err)
	}
	if lookupErr.Class != arguserr.ProfileLookupUnavailable || !lookupErr.Temporary {
		t.Fatalf("expected an unavailable/temporary classification, got %+v", lookupErr)
	}
}

func TestResolveEmptyNameIsRejectedBeforeRequest(t *testing.T) {
	called := false
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	_, err := r.Resolve(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected an error for a blank name")
	}
	if called {
		t.Fatal("expected no HTTP request for a blank name")
	}
}

func errorsAs(err error, target **arguserr.ProfileLookupError) bool {
	lookupErr, ok := err.(*arguserr.ProfileLookupError)
	if !ok {
		return false
	}
	*target = lookupErr
	return true
}
