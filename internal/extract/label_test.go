package extract

import (
	"testing"
)

func TestFindValue(t *testing.T) {
	e := NewLabelExtractor("■□◆◇▽▼")

	tests := []struct {
		name   string
		text   string
		labels []string
		want   string
		wantOK bool
	}{
		{"same line full-width colon", "予約番号：BE123456", []string{"予約番号"}, "BE123456", true},
		{"same line half-width colon", "予約番号: BE123456\n次の行", []string{"予約番号"}, "BE123456", true},
		{"same line no colon", "■予約番号 BE123456", []string{"予約番号"}, "BE123456", true},
		{"next line", "■指名スタッフ\n　山田 太郎\n■メニュー", []string{"指名スタッフ"}, "山田 太郎", true},
		{"next line stops at marker", "■指名スタッフ\n■メニュー\nカット", []string{"指名スタッフ"}, "", false},
		{"leading separators stripped", "予約番号：・- BE1", []string{"予約番号"}, "BE1", true},
		{"marker only value", "予約番号：■\nBE9", []string{"予約番号"}, "BE9", true},
		{"second synonym", "■お名前\n山田 太郎", []string{"氏名", "お名前"}, "山田 太郎", true},
		{"bracketed label", "【予約番号】BE77", []string{"予約番号"}, "BE77", true},
		{"label inside prose ignored", "ご予約番号についてのご案内\n予約番号：BE5", []string{"予約番号"}, "BE5", true},
		{"prose with colon accepted", "お客様の予約番号：BE6", []string{"予約番号"}, "BE6", true},
		{"blank line before value", "■氏名\n\n山田 太郎", []string{"氏名"}, "山田 太郎", true},
		{"absent", "何もない本文", []string{"予約番号"}, "", false},
		{"empty text", "", []string{"予約番号"}, "", false},
		{"label at end", "本文\n■予約番号", []string{"予約番号"}, "", false},
		{"label runs into a longer word", "■メニュー名 カット", []string{"メニュー"}, "", false},
		{"prose before heading", "・メニュー変更はお電話で\n■メニュー\nカット", []string{"メニュー"}, "カット", true},
		{"shorter synonym shadowed", "■ご要望・ご相談\n前髪短め", []string{"ご要望", "ご要望・ご相談"}, "前髪短め", true},
		{"separator only value kept", "■ご要望・ご相談\n-\n■メニュー\nカット", []string{"ご要望・ご相談", "■ご要望・ご相談", "ご要望"}, "-", true},
		{"empty heading ends search", "■ご要望・ご相談\n\n■メニュー\nカット", []string{"ご要望・ご相談", "■ご要望・ご相談", "ご要望"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.FindValue(tt.text, tt.labels...)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FindValue(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindBlock(t *testing.T) {
	e := NewLabelExtractor("■□◆◇▽▼")

	text := "■メニュー\n【カット】カット\n【カラー】フルカラー\n■ご要望・ご相談\n前髪短めで\nお願いします\n\nフッター"

	menu, ok := e.FindBlock(text, "メニュー")
	if !ok || menu != "【カット】カット\n【カラー】フルカラー" {
		t.Errorf("FindBlock(メニュー) = (%q, %v)", menu, ok)
	}

	remarks, ok := e.FindBlock(text, "ご要望・ご相談")
	if !ok || remarks != "前髪短めで\nお願いします" {
		t.Errorf("FindBlock(ご要望・ご相談) = (%q, %v)", remarks, ok)
	}

	first, ok := e.FindValue(text, "メニュー")
	if !ok || first != "【カット】カット" {
		t.Errorf("FindValue(メニュー) = (%q, %v)", first, ok)
	}

	same, ok := e.FindBlock("メニュー：カット\n続き", "メニュー")
	if !ok || same != "カット" {
		t.Errorf("FindBlock same line = (%q, %v)", same, ok)
	}
}

func TestFindValueFunc(t *testing.T) {
	e := NewLabelExtractor("■")
	text := "TEL：未登録\n■電話番号\n090-1234-5678"

	got, ok := e.FindValueFunc(text, ParsePhone, "TEL", "電話番号")
	if !ok || got != "090-1234-5678" {
		t.Errorf("FindValueFunc = (%q, %v), want (%q, true)", got, ok, "090-1234-5678")
	}
}

func TestWindow(t *testing.T) {
	text := "あいうえおかきくけこ"
	start := len("あいう")
	end := start + len("え")

	tests := []struct {
		before, after int
		want          string
	}{
		{0, 0, "え"},
		{1, 2, "うえおか"},
		{10, 0, "あいうえ"},
		{0, 100, "えおかきくけこ"},
	}

	for _, tt := range tests {
		if got := Window(text, start, end, tt.before, tt.after); got != tt.want {
			t.Errorf("Window(%d, %d) = %q, want %q", tt.before, tt.after, got, tt.want)
		}
	}
}
