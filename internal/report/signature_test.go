package report_test

import (
	"regexp"
	"testing"

	"github.com/kiranshivaraju/faultline/internal/report"
	"github.com/stretchr/testify/assert"
)

const sampleStack = "TypeError: Cannot read properties of undefined\n    at handleClick (app.js:10:5)\n    at HTMLButtonElement.dispatch (vendor.js:2:100)"

func TestSignature_Deterministic(t *testing.T) {
	a := report.Signature("boom", sampleStack, "https://x.com/users/123")
	b := report.Signature("boom", sampleStack, "https://x.com/users/123")

	assert.Equal(t, a, b)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), a)
}

func TestSignature_NumericSegmentsEquivalent(t *testing.T) {
	assert.Equal(t,
		report.Signature("boom", sampleStack, "https://x.com/users/123"),
		report.Signature("boom", sampleStack, "https://x.com/users/456"),
	)
}

func TestSignature_UUIDSegmentsEquivalent(t *testing.T) {
	assert.Equal(t,
		report.Signature("boom", sampleStack, "https://x.com/orders/abcdef12-3456-7890-abcd-ef1234567890"),
		report.Signature("boom", sampleStack, "https://x.com/orders/FEDCBA21-6543-0987-DCBA-FE9876543210"),
	)
}

func TestSignature_QueryIgnored(t *testing.T) {
	assert.Equal(t,
		report.Signature("boom", sampleStack, "https://x.com/search?q=1"),
		report.Signature("boom", sampleStack, "https://x.com/search?q=2&page=9"),
	)
}

func TestSignature_LaterFramesIgnored(t *testing.T) {
	other := "TypeError: Cannot read properties of undefined\n    at handleClick (app.js:99:1)\n    at somethingElse (x.js:1:1)"
	assert.Equal(t,
		report.Signature("boom", sampleStack, ""),
		report.Signature("boom", other, ""),
	)
}

func TestSignature_Distinguishes(t *testing.T) {
	base := report.Signature("boom", sampleStack, "https://x.com/users/1")

	assert.NotEqual(t, base, report.Signature("bang", sampleStack, "https://x.com/users/1"))
	assert.NotEqual(t, base, report.Signature("boom", "Error\n    at other (a.js:1:1)", "https://x.com/users/1"))
	assert.NotEqual(t, base, report.Signature("boom", sampleStack, "https://x.com/teams/1"))
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://x.com/users/123", "https://x.com/users/:id"},
		{"https://x.com/users/123?tab=7", "https://x.com/users/:id"},
		{"https://x.com/v2/items", "https://x.com/v2/items"},
		{"https://x.com/order/abc123", "https://x.com/order/abc123"},
		{"https://x.com:8080/users/5/posts/6", "https://x.com:8080/users/:id/posts/:id"},
		{"/a/abcdef12-3456-7890-abcd-ef1234567890/b", "/a/:uuid/b"},
		{"/search?id=abcdef12-3456-7890-abcd-ef1234567890", "/search"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, report.NormalizeURL(tt.in))
		})
	}
}

func TestFirstFrame(t *testing.T) {
	tests := []struct {
		name  string
		stack string
		want  string
	}{
		{"empty", "", ""},
		{"single line", "Error: boom", ""},
		{"named frame", sampleStack, "handleClick"},
		{"anonymous frame", "Error\n    at Object.<anonymous> (/srv/app.js:1:1)", "Object.<anonymous>"},
		{"bare location cut at colon", "Error\n    at https://x.com/app.js:10:5", "https"},
		{"go frame", "boom\n    at report.(*Service).ReportError (reporter.go:42)", "report.(*Service).ReportError"},
		{"no at token", "Error\nmain.run", "main.run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, report.FirstFrame(tt.stack))
		})
	}
}
