package sanitize

import "testing"

func TestHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "plain", in: "  hello  ", want: "hello"},
		{name: "keeps formatting", in: `<p class="lead"><b>bold</b></p>`, want: `<p class="lead"><b>bold</b></p>`},
		{name: "drops script", in: `<b>x</b><script>alert(1)</script>`, want: `<b>x</b>`},
		{name: "drops handlers", in: `<b onclick="evil()">go</b>`, want: `<b>go</b>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTML(tt.in); got != tt.want {
				t.Fatalf("HTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
