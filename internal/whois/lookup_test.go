package whois

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const verisignSample = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2027-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
`

func TestParse(t *testing.T) {
	now := time.Date(2027, 8, 1, 4, 0, 0, 0, time.UTC)

	reg := parse(verisignSample, now)
	if reg == nil {
		t.Fatal("parse() = nil")
	}
	if reg.Registrar != "RESERVED-Internet Assigned Numbers Authority" {
		t.Errorf("registrar = %q", reg.Registrar)
	}
	want := time.Date(2027, 8, 13, 4, 0, 0, 0, time.UTC)
	if reg.ExpirationDate == nil || !reg.ExpirationDate.Equal(want) {
		t.Errorf("expiration = %v, want %v", reg.ExpirationDate, want)
	}
	if reg.DaysToExpire == nil || *reg.DaysToExpire != 12 {
		t.Errorf("days = %v, want 12", reg.DaysToExpire)
	}
}

func TestParseFallback(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantRegistrar string
		wantDate      string
		wantNil       bool
	}{
		{
			name:     "ru style paid-till",
			raw:      "domain: EXAMPLE.RU\r\npaid-till: 2027-03-01T21:00:00Z\r\n",
			wantDate: "2027-03-01",
		},
		{
			name:          "registrar only",
			raw:           "Sponsoring Registrar: Example Registrar Ltd\n",
			wantRegistrar: "Example Registrar Ltd",
		},
		{
			name:    "nothing useful",
			raw:     "No match for domain \"NOPE.TEST\".\n",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := parse(tt.raw, time.Now())
			if tt.wantNil {
				if reg != nil {
					t.Fatalf("parse() = %+v, want nil", reg)
				}
				return
			}
			if reg == nil {
				t.Fatal("parse() = nil")
			}
			if reg.Registrar != tt.wantRegistrar {
				t.Errorf("registrar = %q, want %q", reg.Registrar, tt.wantRegistrar)
			}
			if tt.wantDate == "" {
				if reg.ExpirationDate != nil || reg.DaysToExpire != nil {
					t.Errorf("unexpected expiry %v", reg.ExpirationDate)
				}
				return
			}
			if reg.ExpirationDate == nil || reg.ExpirationDate.Format("2006-01-02") != tt.wantDate {
				t.Errorf("expiration = %v, want %s", reg.ExpirationDate, tt.wantDate)
			}
		})
	}
}

func TestRegistration(t *testing.T) {
	c := NewClient(time.Second, zerolog.Nop())

	c.fetch = func(string) (string, error) { return "", errors.New("connection refused") }
	if _, err := c.Registration(context.Background(), "example.com"); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("err = %v", err)
	}

	block := make(chan struct{})
	defer close(block)
	c.fetch = func(string) (string, error) { <-block; return "", nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Registration(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	c.fetch = func(string) (string, error) { return verisignSample, nil }
	reg, err := c.Registration(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Registration() error = %v", err)
	}
	if reg.Registrar == "" || reg.ExpirationDate == nil {
		t.Errorf("incomplete registration %+v", reg)
	}
}
