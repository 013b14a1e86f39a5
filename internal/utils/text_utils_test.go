package utils

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNormalize(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\r\n　", ""},
		{"full-width digits and colon", "来店日時：２０２６年０１月１１日（日）１１：１５", "来店日時:2026年01月11日(日)11:15"},
		{"full-width space", "山田　太郎", "山田 太郎"},
		{"half-width untouched", "abc 123 (x):y", "abc 123 (x):y"},
		{"br and p tags", "a<br>b<br/>c<BR />d</p>e", "a\nb\nc\nd\ne"},
		{"strip tags", "<div><b>予約番号</b>：BE1</div>", "予約番号:BE1"},
		{"nested tag fragments", "<<b>br>x", "x"},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"collapse spaces", "  a \t  b  \n   c   ", "a b\nc"},
		{"collapse blank lines", "a\n\n\n\n\nb\n\nc", "a\n\nb\n\nc"},
		{"invalid utf8", "a\xffb", "ab"},
		{"half-width katakana", "ｱｼﾞｻｶ", "アジサカ"},
		{"not a tag", "1 < 2 > 0", "1 < 2 > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tp.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	inputs := []string{
		"",
		"■予約番号\r\n　BE123456\r\n\r\n\r\n\r\n■氏名\r\n鯵坂　里保（アジサカ　リホ）",
		"<p>来店日時：２０２６年０１月１１日（日）１１：１５</p><br><br><br>",
		"＜ｂｒ＞＜ｐ＞full-width tags＜／ｐ＞",
		"<<b>p>x</<i>p>",
		"\t\t  a  \n\n\n  \n b\x00\xfe ",
		"ｶﾞｷﾞｸﾞ　ﾃｽﾄ",
		strings.Repeat("メニュー\n\n\n", 20),
	}

	for _, in := range inputs {
		once := tp.Normalize(in)
		if twice := tp.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFullWidthFolding(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	for r := rune(0xFF01); r <= 0xFF5E; r++ {
		in := "x" + string(r) + "x"
		want := "x" + string(r-0xFEE0) + "x"
		if got := tp.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}

	for r := rune('!'); r <= '~'; r++ {
		in := "x" + string(r) + "x"
		if got := tp.Normalize(in); got != in {
			t.Errorf("Normalize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	if got := tp.TruncateText("short", 100); got != "short" {
		t.Errorf("TruncateText = %q, want %q", got, "short")
	}

	got := tp.TruncateText("あいうえお", 4)
	if !strings.HasPrefix(got, "あ\n") {
		t.Errorf("TruncateText = %q, want prefix %q", got, "あ\n")
	}
}
