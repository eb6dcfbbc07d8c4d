package domain

import "testing"

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AccountType
		wantErr bool
	}{
		{name: "exact match", input: "CHECKING", want: AccountChecking},
		{name: "lowercase input", input: "savings", want: AccountSavings},
		{name: "surrounding whitespace", input: "  business ", want: AccountBusiness},
		{name: "unknown type", input: "OFFSHORE", wantErr: true},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccountType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
