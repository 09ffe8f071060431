package expr

import "testing"

func TestFormatInfixAndFunctionForms(t *testing.T) {
	reg := mustRegistry(t, []string{"+", "pow"}, []string{"cos"})
	add, _ := reg.LookupBinary("+")
	pow, _ := reg.LookupBinary("pow")
	cos, _ := reg.LookupUnary("cos")

	tree := Binary(add, Unary(cos, Variable(1)), Binary(pow, Variable(0), Constant(2)))
	got := Format(reg, tree)
	want := "(cos(x1) + pow(x0, 2))"
	if got != want {
		t.Fatalf("format: got %q, want %q", got, want)
	}
}

func TestFormatConstants(t *testing.T) {
	reg := mustRegistry(t, []string{"+"}, nil)
	if got := Format(reg, Constant(-0.5)); got != "-0.5" {
		t.Fatalf("format constant: got %q", got)
	}
	if got := Format(reg, Constant(2)); got != "2" {
		t.Fatalf("format integer constant: got %q", got)
	}
}
