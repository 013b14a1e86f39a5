package extract

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.FixedZone("JST", 9*60*60)
	return opts
}

func TestExtractStart(t *testing.T) {
	opts := testOptions()
	x := NewDateTimeExtractor(NewLabelExtractor(opts.BlockMarkers), opts, zaptest.NewLogger(t))
	want := time.Date(2026, 1, 11, 11, 15, 0, 0, opts.Location)

	tests := []struct {
		name   string
		text   string
		wantOK bool
	}{
		{"long form with weekday", "来店日時：2026年01月11日（日）11:15", true},
		{"long form normalized", "来店日時:2026年01月11日(日)11:15", true},
		{"long form without weekday", "予約日時 2026年1月11日 11:15", true},
		{"slash form", "2026/01/11 11:15", true},
		{"dash form", "開始日時: 2026-1-11 11:15", true},
		{"label on previous line", "■来店日時\n2026年01月11日(日)11:15〜", true},
		{"window preferred over earlier date", "受付日時：2025/12/01 09:00\n来店日時：2026年01月11日(日)11:15", true},
		{"invalid month", "来店日時：2026年13月11日 11:15", false},
		{"invalid day", "2026/02/30 10:00", false},
		{"invalid hour", "2026/01/11 24:00", false},
		{"no date", "来店日時：未定", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := x.ExtractStart(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractStart(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && !got.Equal(want) {
				t.Errorf("ExtractStart(%q) = %v, want %v", tt.text, got, want)
			}
		})
	}
}

func TestExtractStartFallsBackPastInvalidWindow(t *testing.T) {
	opts := testOptions()
	x := NewDateTimeExtractor(NewLabelExtractor(opts.BlockMarkers), opts, zaptest.NewLogger(t))

	got, ok := x.ExtractStart("来店日時：2026年13月01日 10:00\n変更後 2026/03/01 10:30")
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, opts.Location)
	if !ok || !got.Equal(want) {
		t.Errorf("ExtractStart = (%v, %v), want (%v, true)", got, ok, want)
	}
}

func TestExtractStartLogsRawLine(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	opts := testOptions()
	x := NewDateTimeExtractor(NewLabelExtractor(opts.BlockMarkers), opts, zap.New(core))

	if _, ok := x.ExtractStart("■来店日時\n近日中\n■メニュー"); ok {
		t.Fatalf("ExtractStart ok = true, want false")
	}

	entries := logs.FilterMessage("Could not parse visit date-time").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if raw := entries[0].ContextMap()["raw_line"]; raw != "近日中" {
		t.Errorf("raw_line = %v, want %q", raw, "近日中")
	}
}

func TestExtractMinutes(t *testing.T) {
	x := NewDurationExtractor(testOptions(), zaptest.NewLogger(t))

	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"所要時間目安：40分", 40, true},
		{"所要時間目安:40分", 40, true},
		{"施術時間 90 min", 90, true},
		{"所要時間: 60MIN", 60, true},
		{"1時間30分", 90, true},
		{"2時間", 120, true},
		{"所要時間目安：1時間30分", 90, true},
		{"10000分", 0, false},
		{"所要時間：1000分", 0, false},
		{"所要時間：3分", 0, false},
		{"9時間", 0, false},
		{"100時間", 0, false},
		{"所要時間：999分\n1時間", 60, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := x.ExtractMinutes(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractMinutes(%q) = (%d, %v), want (%d, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		line                 string
		last, first          string
		lastKana, firstKana  string
		wantKana, wantParsed bool
	}{
		{"鯵坂 里保（アジサカ リホ）", "鯵坂", "里保", "アジサカ", "リホ", true, true},
		{"鯵坂　里保（アジサカ　リホ）", "鯵坂", "里保", "アジサカ", "リホ", true, true},
		{"鯵坂 里保(アジサカ リホ) 様", "鯵坂", "里保", "アジサカ", "リホ", true, true},
		{"鯵坂 里保 様(アジサカ リホ)", "鯵坂", "里保", "アジサカ", "リホ", true, true},
		{"鯵坂 里保　様（アジサカ　リホ）", "鯵坂", "里保", "アジサカ", "リホ", true, true},
		{"山田 太郎", "山田", "太郎", "", "", false, true},
		{"山田 太郎 様", "山田", "太郎", "", "", false, true},
		{"山田 太郎様", "山田", "太郎", "", "", false, true},
		{"山田太郎(ヤマダタロウ)", "", "", "", "", false, false},
		{"山田", "", "", "", "", false, false},
		{"", "", "", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseName(tt.line)
			if !tt.wantParsed {
				if got != nil {
					t.Errorf("ParseName(%q) = %+v, want nil", tt.line, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseName(%q) = nil", tt.line)
			}
			if got.LastName != tt.last || got.FirstName != tt.first {
				t.Errorf("ParseName(%q) = %q %q, want %q %q", tt.line, got.LastName, got.FirstName, tt.last, tt.first)
			}
			if !tt.wantKana {
				if got.LastNameKana != nil || got.FirstNameKana != nil {
					t.Errorf("ParseName(%q) kana = %v %v, want nil", tt.line, got.LastNameKana, got.FirstNameKana)
				}
				return
			}
			if got.LastNameKana == nil || *got.LastNameKana != tt.lastKana ||
				got.FirstNameKana == nil || *got.FirstNameKana != tt.firstKana {
				t.Errorf("ParseName(%q) kana mismatch, want %q %q", tt.line, tt.lastKana, tt.firstKana)
			}
		})
	}
}

func TestExtractName(t *testing.T) {
	opts := testOptions()
	x := NewNameExtractor(NewLabelExtractor(opts.BlockMarkers), opts, zaptest.NewLogger(t))

	got := x.ExtractName("■氏名\n鯵坂 里保(アジサカ リホ)\n■来店日時")
	if got == nil || got.LastName != "鯵坂" || got.FirstName != "里保" {
		t.Fatalf("ExtractName = %+v", got)
	}

	if got := x.ExtractName("お名前：山田 太郎"); got == nil || got.LastName != "山田" || got.LastNameKana != nil {
		t.Errorf("ExtractName = %+v, want 山田 太郎 without kana", got)
	}

	if got := x.ExtractName("■メニュー\nカット"); got != nil {
		t.Errorf("ExtractName = %+v, want nil", got)
	}
}

func TestParseContact(t *testing.T) {
	phones := []struct {
		in   string
		want string
		ok   bool
	}{
		{"090-1234-5678", "090-1234-5678", true},
		{"０９０－１２３４－５６７８", "090-1234-5678", true},
		{"03 1234 5678", "0312345678", true},
		{"+81 90 1234 5678", "+819012345678", true},
		{"未登録", "", false},
		{"12345", "", false},
	}
	for _, tt := range phones {
		got, ok := ParsePhone(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePhone(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if got, ok := ParseEmail("連絡先 taro@example.jp です"); !ok || got != "taro@example.jp" {
		t.Errorf("ParseEmail = (%q, %v)", got, ok)
	}
	if _, ok := ParseEmail("なし"); ok {
		t.Errorf("ParseEmail(なし) ok = true, want false")
	}
}
