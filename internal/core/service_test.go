package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeVerifier struct {
	result VerificationResult
}

func (f *fakeVerifier) Verify(timestamp, token, signature string) VerificationResult {
	return f.result
}

type fakeClassifier struct {
	accept bool
	calls  int
}

func (f *fakeClassifier) IsReservationNotification(subject string) bool {
	f.calls++
	return f.accept
}

type trimNormalizer struct {
	input string
}

func (n *trimNormalizer) Normalize(raw string) string {
	n.input = raw
	return strings.TrimSpace(raw)
}

func (n *trimNormalizer) TruncateText(text string, maxSize int) string {
	if len(text) <= maxSize {
		return text
	}
	return text[:maxSize]
}

type fakeExtractor struct {
	record *ReservationMailRecord
	panic  bool
}

func (f *fakeExtractor) Extract(normalized string) *ReservationMailRecord {
	if f.panic {
		panic("boom")
	}
	return f.record
}

type fakeSink struct {
	handle  *ReservationHandle
	err     error
	panic   bool
	records []*ReservationMailRecord
}

func (f *fakeSink) Create(ctx context.Context, record *ReservationMailRecord) (*ReservationHandle, error) {
	if f.panic {
		panic("sink down")
	}
	f.records = append(f.records, record)
	return f.handle, f.err
}

func strPtr(s string) *string { return &s }

type pipelineFixture struct {
	verifier   *fakeVerifier
	classifier *fakeClassifier
	normalizer *trimNormalizer
	extractor  *fakeExtractor
	sink       *fakeSink
}

func newFixture() *pipelineFixture {
	return &pipelineFixture{
		verifier:   &fakeVerifier{result: VerificationResult{Valid: true, Reason: ReasonOK}},
		classifier: &fakeClassifier{accept: true},
		normalizer: &trimNormalizer{},
		extractor: &fakeExtractor{record: &ReservationMailRecord{
			ExternalReservationID: strPtr("BE12345678"),
		}},
		sink: &fakeSink{handle: &ReservationHandle{ID: "r-1", Created: true}},
	}
}

func (f *pipelineFixture) pipeline(logger *zap.Logger) *IngestionPipeline {
	return NewIngestionPipeline(f.verifier, f.classifier, f.normalizer, f.extractor, f.sink, logger)
}

func testMail() *InboundMail {
	return &InboundMail{
		Sender:    "noreply@hotpepper.example",
		Subject:   "【HOT PEPPER Beauty】予約が入りました",
		BodyPlain: "  予約番号：BE12345678  ",
		Timestamp: "1700000000",
		Token:     "abc123",
		Signature: "deadbeef",
		MessageID: "<m-1@mail.example.com>",
	}
}

func TestProcessHandsOffReservation(t *testing.T) {
	f := newFixture()
	outcome := f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

	require.Equal(t, StateHandedOff, outcome.State)
	require.Equal(t, AbortNone, outcome.AbortReason)
	require.NoError(t, outcome.Err)
	require.True(t, outcome.Success())
	require.Equal(t, "r-1", outcome.Handle.ID)
	require.Equal(t, "<m-1@mail.example.com>", outcome.Record.SourceMessageID)
	require.Equal(t, "  予約番号：BE12345678  ", f.normalizer.input)
	require.Len(t, f.sink.records, 1)

	resp := outcome.Response()
	require.True(t, resp.Success)
	require.Equal(t, "reservation registered", resp.Message)
	require.NotNil(t, resp.ReservationID)
	require.Equal(t, "r-1", *resp.ReservationID)
}

func TestProcessDuplicateDelivery(t *testing.T) {
	f := newFixture()
	f.sink.handle = &ReservationHandle{ID: "r-1", Created: false}

	outcome := f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

	require.Equal(t, StateHandedOff, outcome.State)
	resp := outcome.Response()
	require.True(t, resp.Success)
	require.Equal(t, "reservation already registered", resp.Message)
}

func TestProcessAborts(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(f *pipelineFixture)
		wantReason  AbortReason
		wantKind    ErrorKind
		wantSuccess bool
		wantMessage string
		wantSinkHit bool
	}{
		{
			name: "bad signature",
			setup: func(f *pipelineFixture) {
				f.verifier.result = VerificationResult{Valid: false, Reason: ReasonBadSignature}
			},
			wantReason:  AbortBadSignature,
			wantKind:    KindAuthenticationFailure,
			wantMessage: "signature verification failed",
		},
		{
			name: "missing signature parameters",
			setup: func(f *pipelineFixture) {
				f.verifier.result = VerificationResult{Valid: false, Reason: ReasonMissingParams}
			},
			wantReason:  AbortMissingParams,
			wantKind:    KindAuthenticationFailure,
			wantMessage: "signature parameters missing",
		},
		{
			name: "not a reservation notification",
			setup: func(f *pipelineFixture) {
				f.classifier.accept = false
			},
			wantReason:  AbortNotReservationMail,
			wantKind:    KindUnclassified,
			wantSuccess: true,
			wantMessage: "skipped: not a reservation notification",
		},
		{
			name: "sink error",
			setup: func(f *pipelineFixture) {
				f.sink.handle = nil
				f.sink.err = errors.New("connection refused")
			},
			wantReason:  AbortSinkFailure,
			wantKind:    KindSinkFailure,
			wantMessage: "failed to register reservation",
			wantSinkHit: true,
		},
		{
			name: "sink returns no handle",
			setup: func(f *pipelineFixture) {
				f.sink.handle = nil
			},
			wantReason:  AbortSinkFailure,
			wantKind:    KindSinkFailure,
			wantMessage: "failed to register reservation",
			wantSinkHit: true,
		},
		{
			name: "sink panics",
			setup: func(f *pipelineFixture) {
				f.sink.panic = true
			},
			wantReason:  AbortSinkFailure,
			wantKind:    KindSinkFailure,
			wantMessage: "failed to register reservation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			outcome := f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

			if outcome.State != StateAborted {
				t.Errorf("State = %v, want %v", outcome.State, StateAborted)
			}
			if outcome.AbortReason != tt.wantReason {
				t.Errorf("AbortReason = %v, want %v", outcome.AbortReason, tt.wantReason)
			}
			if !IsKind(outcome.Err, tt.wantKind) {
				t.Errorf("Err = %v, want kind %v", outcome.Err, tt.wantKind)
			}
			if outcome.Success() != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", outcome.Success(), tt.wantSuccess)
			}
			resp := outcome.Response()
			if resp.Message != tt.wantMessage {
				t.Errorf("Response().Message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if resp.ReservationID != nil {
				t.Errorf("Response().ReservationID = %v, want nil", *resp.ReservationID)
			}
			if got := len(f.sink.records) > 0; got != tt.wantSinkHit {
				t.Errorf("sink called = %v, want %v", got, tt.wantSinkHit)
			}
		})
	}
}

func TestProcessSkipsClassificationOnBadSignature(t *testing.T) {
	f := newFixture()
	f.verifier.result = VerificationResult{Valid: false, Reason: ReasonBadSignature}

	f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

	require.Zero(t, f.classifier.calls)
	require.Empty(t, f.normalizer.input)
}

func TestProcessSinkErrorIsWrapped(t *testing.T) {
	f := newFixture()
	sinkErr := errors.New("connection refused")
	f.sink.handle = nil
	f.sink.err = sinkErr

	outcome := f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

	require.ErrorIs(t, outcome.Err, sinkErr)
}

func TestProcessPartialExtractionStillHandsOff(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	f := newFixture()
	f.extractor.record = &ReservationMailRecord{
		MenuName: strPtr("カット"),
		Missing:  []string{FieldReservationID, FieldStartTime},
	}

	result := f.pipeline(zap.New(obsCore)).Process(context.Background(), testMail())

	require.Equal(t, StateHandedOff, result.State)
	require.Equal(t, "message:<m-1@mail.example.com>", result.Record.IdempotencyKey())

	entries := logs.FilterMessage("Partial extraction").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "<m-1@mail.example.com>", fields["message_id"])
	require.Equal(t, "予約番号：BE12345678", fields["body_preview"])
}

func TestProcessExtractorPanicYieldsEmptyRecord(t *testing.T) {
	f := newFixture()
	f.extractor.panic = true

	outcome := f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

	require.Equal(t, StateHandedOff, outcome.State)
	require.ElementsMatch(t, allFields(), outcome.Record.Missing)
	require.Equal(t, "<m-1@mail.example.com>", outcome.Record.SourceMessageID)
}

func TestProcessNilRecordFromExtractor(t *testing.T) {
	f := newFixture()
	f.extractor.record = nil

	outcome := f.pipeline(zaptest.NewLogger(t)).Process(context.Background(), testMail())

	require.NotNil(t, outcome.Record)
	require.Len(t, outcome.Record.Missing, 9)
}

func TestInboundMailBody(t *testing.T) {
	tests := []struct {
		name string
		mail InboundMail
		want string
	}{
		{"plain preferred", InboundMail{BodyPlain: "plain", BodyHTML: "<p>html</p>"}, "plain"},
		{"blank plain falls through", InboundMail{BodyPlain: " \n", StrippedText: "stripped"}, "stripped"},
		{"html when no text", InboundMail{BodyHTML: "<p>html</p>"}, "<p>html</p>"},
		{"stripped html last", InboundMail{StrippedHTML: "<b>x</b>"}, "<b>x</b>"},
		{"nothing", InboundMail{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mail.Body(); got != tt.want {
				t.Errorf("Body() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordMemo(t *testing.T) {
	record := &ReservationMailRecord{
		ExternalReservationID: strPtr("BE12345678"),
		Customer:              &CustomerName{LastName: "山田", FirstName: "花子"},
		PhoneNumber:           strPtr("09012345678"),
		MenuName:              strPtr("カット"),
		Remarks:               strPtr("前髪短め"),
	}

	want := "[HPB予約番号: BE12345678]\n[顧客名: 山田 花子]\n[電話番号: 09012345678]\n[メニュー: カット]\n[要望: 前髪短め]"
	if got := record.Memo(); got != want {
		t.Errorf("Memo() = %q, want %q", got, want)
	}
	if got := (&ReservationMailRecord{}).Memo(); got != "" {
		t.Errorf("Memo() on empty record = %q, want empty", got)
	}
}

func TestRecordIdempotencyKey(t *testing.T) {
	tests := []struct {
		name   string
		record ReservationMailRecord
		want   string
	}{
		{"external id", ReservationMailRecord{ExternalReservationID: strPtr("BE1"), SourceMessageID: "<m>"}, "BE1"},
		{"message id fallback", ReservationMailRecord{SourceMessageID: "<m>"}, "message:<m>"},
		{"empty external id", ReservationMailRecord{ExternalReservationID: strPtr("")}, ""},
		{"none", ReservationMailRecord{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.IdempotencyKey(); got != tt.want {
				t.Errorf("IdempotencyKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPipelineErrorKinds(t *testing.T) {
	err := NewPartialExtraction([]string{FieldName, FieldPhone})
	require.True(t, IsKind(err, KindPartialExtraction))
	require.False(t, IsKind(err, KindSinkFailure))
	require.Contains(t, err.Error(), "name, phone")
	require.False(t, IsKind(errors.New("plain"), KindSinkFailure))
}

func TestProcessPartialExtractionPreviewIsTruncated(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	f := newFixture()
	f.extractor.record = &ReservationMailRecord{Missing: []string{FieldMenu}}
	mail := testMail()
	mail.BodyPlain = strings.Repeat("a", bodyPreviewBytes*3)

	f.pipeline(zap.New(obsCore)).Process(context.Background(), mail)

	entries := logs.FilterMessage("Partial extraction").All()
	require.Len(t, entries, 1)
	require.Equal(t, strings.Repeat("a", bodyPreviewBytes), entries[0].ContextMap()["body_preview"])
}
