package extract

import (
	"time"
)

// Labels holds the label synonyms tried for each logical field, in order
type Labels struct {
	ReservationID []string
	Name          []string
	VisitDateTime []string
	Duration      []string
	Staff         []string
	Menu          []string
	Remarks       []string
	Phone         []string
	Email         []string
}

// Options configures the extractors. All language-specific literals live here.
type Options struct {
	Labels            Labels
	BlockMarkers      string
	WindowBefore      int
	WindowAfter       int
	MinDuration       int
	MaxDuration       int
	Location          *time.Location
	NoStaffValues     []string
	EmptyRemarkValues []string
}

// DefaultLabels returns the label synonyms used by current notification templates
func DefaultLabels() Labels {
	return Labels{
		ReservationID: []string{"予約番号", "■予約番号"},
		Name:          []string{"氏名", "■氏名", "お名前", "名前"},
		VisitDateTime: []string{"来店日時", "予約日時", "開始日時"},
		Duration:      []string{"所要時間", "施術時間", "目安"},
		Staff:         []string{"指名スタッフ", "■指名スタッフ", "担当スタッフ"},
		Menu:          []string{"メニュー", "■メニュー"},
		Remarks:       []string{"ご要望・ご相談", "■ご要望・ご相談", "ご要望"},
		Phone:         []string{"電話番号", "TEL", "電話"},
		Email:         []string{"メールアドレス", "E-mail", "メール"},
	}
}

// DefaultOptions returns options matching the defaults of the service configuration
func DefaultOptions() Options {
	return Options{
		Labels:            DefaultLabels(),
		BlockMarkers:      "■□◆◇▽▼",
		WindowBefore:      0,
		WindowAfter:       220,
		MinDuration:       5,
		MaxDuration:       480,
		Location:          DefaultLocation(),
		NoStaffValues:     []string{"指名なし", "なし", "未指定"},
		EmptyRemarkValues: []string{"-", "なし", "特になし"},
	}
}

// DefaultLocation returns Asia/Tokyo, or a fixed +09:00 zone when tzdata is unavailable
func DefaultLocation() *time.Location {
	return LoadLocation("Asia/Tokyo")
}

// LoadLocation loads a zone by name, falling back to JST
func LoadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("JST", 9*60*60)
}
