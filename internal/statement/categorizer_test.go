package statement

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		name      string
		narration string
		want      string
	}{
		{
			name:      "salary credit",
			narration: "NEFT INFOSYS LTD SALARY JUL",
			want:      "salary",
		},
		{
			name:      "rent payment",
			narration: "Transfer to landlord",
			want:      "rent",
		},
		{
			name:      "food delivery",
			narration: "ZOMATO ORDER 99213",
			want:      "food",
		},
		{
			name:      "case insensitive",
			narration: "NeTfLiX subscription",
			want:      "entertainment",
		},
		{
			name:      "first match wins over later category",
			narration: "rent paid via upi",
			want:      "rent",
		},
		{
			name:      "upi falls through to peer_payment",
			narration: "upi/92811/payment",
			want:      "peer_payment",
		},
		{
			name:      "no match falls back to misc",
			narration: "chq deposit branch",
			want:      CategoryMisc,
		},
		{
			name:      "empty narration",
			narration: "",
			want:      CategoryMisc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.narration)
			if got != tt.want {
				t.Errorf("Categorize(%q) = %q, want %q", tt.narration, got, tt.want)
			}
		})
	}
}

func TestCategorize_OrderIsDeterministic(t *testing.T) {
	// "shell" (fuel) appears before "shopping" in the narration, but fuel
	// is listed first in the rules, so this pins the table-order semantics.
	narration := "shell station shopping complex"
	for i := 0; i < 100; i++ {
		if got := Categorize(narration); got != "fuel" {
			t.Fatalf("iteration %d: Categorize = %q, want fuel", i, got)
		}
	}
}
