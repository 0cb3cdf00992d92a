package subdomain

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type fakeSource struct {
	names []string
	err   error
	calls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Subdomains(ctx context.Context, domain string) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func newTestCTClient(srvURL string) *CTClient {
	return NewCTClient(CTOptions{
		URLTemplate: srvURL + "/?q=%25.{domain}&output=json",
		UserAgent:   "surfacenio-test",
		Timeout:     2 * time.Second,
		Limiter:     rate.NewLimiter(rate.Inf, 1),
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"*.Foo.COM.", "foo.com"},
		{"foo.example.com..", "foo.example.com"},
		{"*.*.example.com", "example.com"},
		{"*.*.", "*"},
		{"  WWW.Example.com ", "www.example.com"},
		{"example.com", "example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCTClient_Subdomains(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `[{"name_value":"a.example.com\nb.other.com\n*.c.example.com"},{"issuer":"x"}]`)
	}))
	defer srv.Close()

	got, err := newTestCTClient(srv.URL).Subdomains(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Subdomains error: %v", err)
	}
	sort.Strings(got)
	want := []string{"a.example.com", "c.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Subdomains = %v, want %v", got, want)
	}
	if gotUA != "surfacenio-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotQuery != "%.example.com" {
		t.Errorf("q = %q, want %%.example.com", gotQuery)
	}
}

func TestCTClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "non-200", status: http.StatusBadGateway, body: `[]`, wantErr: true},
		{name: "malformed json", status: http.StatusOK, body: `[{"name_value":`, wantErr: true},
		{name: "not an array", status: http.StatusOK, body: `{"name_value":"a.example.com"}`, wantErr: true},
		{name: "empty array", status: http.StatusOK, body: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			got, err := newTestCTClient(srv.URL).Subdomains(context.Background(), "example.com")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil || len(got) != 0 {
				t.Fatalf("got %v, %v; want empty", got, err)
			}
		})
	}
}

func TestEnumerate_CTFixture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name_value":"a.example.com\nb.other.com\n*.c.example.com"}]`)
	}))
	defer srv.Close()

	e := NewEnumerator([]Source{newTestCTClient(srv.URL)}, nil, Settings{MaxSubdomains: 5000}, zerolog.Nop())
	got, err := e.Enumerate(context.Background(), "Example.COM.")
	if err != nil {
		t.Fatalf("Enumerate error: %v", err)
	}
	want := []string{"a.example.com", "c.example.com", "example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Enumerate = %v, want %v", got, want)
	}
}

func TestEnumerate_StacksOfDotsAndWildcards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name_value":"a.example.com..\n*.*.example.com\n*.*.b.example.com."}]`)
	}))
	defer srv.Close()

	e := NewEnumerator([]Source{newTestCTClient(srv.URL)}, nil, Settings{MaxSubdomains: 5000}, zerolog.Nop())
	got, err := e.Enumerate(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Enumerate error: %v", err)
	}
	want := []string{"a.example.com", "b.example.com", "example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Enumerate = %v, want %v", got, want)
	}
}

func TestEnumerate_SourceFailureIsEmptyContribution(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	src := &fakeSource{err: errors.New("connection refused")}
	e := NewEnumerator([]Source{src}, nil, Settings{MaxSubdomains: 10}, log)

	got, err := e.Enumerate(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Enumerate error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"example.com"}) {
		t.Fatalf("Enumerate = %v, want only the apex", got)
	}
	if !strings.Contains(buf.String(), "source failed") {
		t.Errorf("expected a warning to be logged, got %q", buf.String())
	}
}

func TestEnumerate_Wordlist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	content := "www\n# comment\n\n  API \nwww\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}

	active := &fakeSource{names: []string{"ns1.example.com"}}

	t.Run("brute enabled", func(t *testing.T) {
		e := NewEnumerator(nil, []Source{active}, Settings{Wordlist: path, MaxSubdomains: 100}, zerolog.Nop())
		got, _ := e.Enumerate(context.Background(), "example.com")
		want := []string{"api.example.com", "example.com", "ns1.example.com", "www.example.com"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Enumerate = %v, want %v", got, want)
		}
	})

	t.Run("passive only skips wordlist and active sources", func(t *testing.T) {
		active.calls = 0
		e := NewEnumerator(nil, []Source{active}, Settings{PassiveOnly: true, Wordlist: path, MaxSubdomains: 100}, zerolog.Nop())
		got, _ := e.Enumerate(context.Background(), "example.com")
		if !reflect.DeepEqual(got, []string{"example.com"}) {
			t.Fatalf("Enumerate = %v", got)
		}
		if active.calls != 0 {
			t.Errorf("active source called %d times in passive mode", active.calls)
		}
	})

	t.Run("missing wordlist", func(t *testing.T) {
		e := NewEnumerator(nil, nil, Settings{Wordlist: filepath.Join(dir, "nope.txt"), MaxSubdomains: 100}, zerolog.Nop())
		got, err := e.Enumerate(context.Background(), "example.com")
		if err != nil || !reflect.DeepEqual(got, []string{"example.com"}) {
			t.Fatalf("Enumerate = %v, %v", got, err)
		}
	})
}

func TestEnumerate_CapKeepsFirstSorted(t *testing.T) {
	names := make([]string, 0, 6000)
	for i := 0; i < 6000; i++ {
		names = append(names, fmt.Sprintf("h%05d.example.com", i))
	}
	// 5999 subdomains plus the apex: 6000 candidates in total.
	names = names[:5999]

	var buf bytes.Buffer
	e := NewEnumerator([]Source{&fakeSource{names: names}}, nil, Settings{MaxSubdomains: 5000}, zerolog.New(&buf))

	got, err := e.Enumerate(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Enumerate error: %v", err)
	}

	all := append([]string{"example.com"}, names...)
	sort.Strings(all)
	if len(all) != 6000 {
		t.Fatalf("fixture has %d names", len(all))
	}
	if !reflect.DeepEqual(got, all[:5000]) {
		t.Fatalf("capped output is not the first 5000 sorted names (first=%s last=%s)", got[0], got[len(got)-1])
	}
	if !strings.Contains(buf.String(), "subdomain cap exceeded") || !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected cap warning, got %q", buf.String())
	}
}
