package receiver

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func iso2022jp(t *testing.T, s string) string {
	t.Helper()
	encoded, err := japanese.ISO2022JP.NewEncoder().String(s)
	require.NoError(t, err)
	return encoded
}

func shiftJIS(s string) string {
	encoded, err := japanese.ShiftJIS.NewEncoder().String(s)
	if err != nil {
		panic(err)
	}
	return encoded
}

func TestReadInboundMailDecodesJapaneseCharsets(t *testing.T) {
	subject := "=?ISO-2022-JP?B?" + base64.StdEncoding.EncodeToString([]byte(iso2022jp(t, "【HOT PEPPER Beauty】予約通知"))) + "?="
	plain := iso2022jp(t, "■予約番号\r\nBE12345678\r\n")

	raw := strings.Join([]string{
		"From: HOT PEPPER Beauty <noreply@beauty.hotpepper.jp>",
		"To: salon@example.com",
		"Subject: " + subject,
		"Message-Id: <abc@mail.example.com>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		`Content-Type: multipart/alternative; boundary="inner"`,
		"",
		"--inner",
		"Content-Type: text/plain; charset=ISO-2022-JP",
		"Content-Transfer-Encoding: 7bit",
		"",
		plain,
		"--inner",
		"Content-Type: text/html; charset=UTF-8",
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString([]byte("<p>予約番号 BE12345678</p>")),
		"--inner--",
		"--outer",
		"Content-Type: text/plain; charset=UTF-8",
		`Content-Disposition: attachment; filename="notes.txt"`,
		"",
		"attachment text",
		"--outer--",
		"",
	}, "\r\n")

	mail, err := ReadInboundMail(strings.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, "【HOT PEPPER Beauty】予約通知", mail.Subject)
	require.Equal(t, "<abc@mail.example.com>", mail.MessageID)
	require.Equal(t, "salon@example.com", mail.Recipient)
	require.Equal(t, mail.From, mail.Sender)
	require.Contains(t, mail.BodyPlain, "■予約番号")
	require.Contains(t, mail.BodyPlain, "BE12345678")
	require.NotContains(t, mail.BodyPlain, "attachment text")
	require.Contains(t, mail.BodyHTML, "<p>予約番号 BE12345678</p>")
}

func TestReadInboundMailSinglePart(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "no content type",
			raw:  "Subject: test\r\n\r\n予約番号：BE1\r\n",
			want: "予約番号：BE1",
		},
		{
			name: "quoted printable",
			raw: "Subject: test\r\n" +
				"Content-Type: text/plain; charset=UTF-8\r\n" +
				"Content-Transfer-Encoding: quoted-printable\r\n\r\n" +
				"=E4=BA=88=E7=B4=84=E7=95=AA=E5=8F=B7=EF=BC=9ABE1\r\n",
			want: "予約番号：BE1",
		},
		{
			name: "shift_jis",
			raw: "Subject: test\r\n" +
				"Content-Type: text/plain; charset=Shift_JIS\r\n\r\n" +
				shiftJIS("予約番号") + "\r\n",
			want: "予約番号",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mail, err := ReadInboundMail(strings.NewReader(tt.raw))
			require.NoError(t, err)
			if got := strings.TrimSpace(mail.BodyPlain); got != tt.want {
				t.Errorf("BodyPlain = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadInboundMailHTMLOnly(t *testing.T) {
	raw := "Subject: test\r\n" +
		"Sender: relay@mail.example.com\r\n" +
		"From: noreply@beauty.hotpepper.jp\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		"<html><body><p>予約番号：BE1</p></body></html>\r\n"

	mail, err := ReadInboundMail(strings.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, "relay@mail.example.com", mail.Sender)
	require.Contains(t, mail.BodyHTML, "<p>予約番号：BE1</p>")
	require.Contains(t, mail.BodyPlain, "BE1")
}

func TestReadInboundMailRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "\r\n\r\n"} {
		_, err := ReadInboundMail(strings.NewReader(raw))
		require.ErrorIs(t, err, ErrEmptyMessage)
	}
}
