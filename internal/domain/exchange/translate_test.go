package exchange

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Error", "error"},
		{"urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Warning", "warning"},
		{"Error", "error"},
		{"WARNING", "warning"},
		{"", "error"},
		{"urn:whatever:Bogus", "error"},
	}
	for _, c := range cases {
		if got := normalizeSeverity(c.in); got != c.want {
			t.Errorf("normalizeSeverity(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRegistryOutcome(t *testing.T) {
	regErrs := []RegistryError{
		{
			ErrorCode:   "XDSRegistryError",
			CodeContext: "Internal Server Error",
			Location:    "RegistryStoredQuery",
			Severity:    "urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Error",
		},
		{
			ErrorCode:   "XDSUnknownCommunity",
			CodeContext: "community not configured",
			Severity:    "urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Warning",
		},
	}

	out := RegistryOutcome("req-1", regErrs)
	if out == nil {
		t.Fatal("expected an outcome")
	}
	if out.ID != "req-1" {
		t.Errorf("outcome id = %q, want req-1", out.ID)
	}
	if len(out.Issue) != 2 {
		t.Fatalf("got %d issues, want 2", len(out.Issue))
	}
	if out.Issue[0].Severity != SeverityError || out.Issue[0].Code != "XDSRegistryError" {
		t.Errorf("first issue = %+v", out.Issue[0])
	}
	if out.Issue[0].DetailsText != "Internal Server Error" {
		t.Errorf("detailsText = %q", out.Issue[0].DetailsText)
	}
	if out.Issue[0].Diagnostics != "RegistryStoredQuery" {
		t.Errorf("diagnostics = %q", out.Issue[0].Diagnostics)
	}
	if out.Issue[1].Severity != SeverityWarning {
		t.Errorf("second issue severity = %q", out.Issue[1].Severity)
	}
	if !out.HasErrors() {
		t.Error("outcome with an error issue should report HasErrors")
	}
}

func TestRegistryOutcomeEmpty(t *testing.T) {
	if out := RegistryOutcome("req-1", nil); out != nil {
		t.Errorf("expected nil outcome for empty error list, got %+v", out)
	}
}

func TestBackendOutcome(t *testing.T) {
	out := BackendOutcome("req-2", "processor returned 500")
	if len(out.Issue) != 1 {
		t.Fatalf("got %d issues, want 1", len(out.Issue))
	}
	is := out.Issue[0]
	if is.Severity != SeverityFatal || is.Code != CodeInvalid {
		t.Errorf("issue = %+v, want fatal/invalid", is)
	}
	if is.DetailsText != "processor returned 500" {
		t.Errorf("detailsText = %q", is.DetailsText)
	}
}

func TestNoMatchOutcomeIsInformational(t *testing.T) {
	out := NoMatchOutcome("req-3")
	if len(out.Issue) != 1 {
		t.Fatalf("got %d issues, want 1", len(out.Issue))
	}
	is := out.Issue[0]
	if is.Severity != SeverityInformation || is.Code != CodeNotFound || is.DetailsText != "NF" {
		t.Errorf("issue = %+v", is)
	}
	if out.HasErrors() {
		t.Error("no-match outcome must not count as an error")
	}
}

func TestTimeoutAndTransportOutcomes(t *testing.T) {
	if is := TimeoutOutcome("r", "deadline exceeded").Issue[0]; is.Code != CodeUnreachable || is.Severity != SeverityFatal {
		t.Errorf("timeout issue = %+v", is)
	}
	if is := TransportOutcome("r", "connection refused").Issue[0]; is.Code != CodeHTTPError || is.Severity != SeverityFatal {
		t.Errorf("transport issue = %+v", is)
	}
}
