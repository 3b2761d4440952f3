package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"tabkeeper/internal/intent"
	"tabkeeper/internal/llm"
	"tabkeeper/internal/model"
)

type mockChat struct {
	FileURLFunc func(ctx context.Context, fileID string) (string, error)
	sent        []string
}

func (m *mockChat) Send(chatID int64, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockChat) FileURL(ctx context.Context, fileID string) (string, error) {
	if m.FileURLFunc == nil {
		return "", errors.New("unexpected FileURL call")
	}
	return m.FileURLFunc(ctx, fileID)
}

func (m *mockChat) lastReply(t *testing.T) string {
	t.Helper()
	if len(m.sent) == 0 {
		t.Fatal("no reply was sent")
	}
	return m.sent[len(m.sent)-1]
}

type mockVision struct {
	ExtractReceiptFunc func(ctx context.Context, image []byte, mimeType string) (llm.ReceiptResult, error)
}

func (m *mockVision) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (llm.ReceiptResult, error) {
	return m.ExtractReceiptFunc(ctx, image, mimeType)
}

type mockIntents struct {
	ExtractFunc func(ctx context.Context, text string) (intent.Result, error)
}

func (m *mockIntents) Extract(ctx context.Context, text string) (intent.Result, error) {
	if m.ExtractFunc == nil {
		return intent.Result{}, errors.New("unexpected Extract call")
	}
	return m.ExtractFunc(ctx, text)
}

type mockDates struct {
	NormalizeFunc func(ctx context.Context, phrase string) (model.Date, error)
}

func (m *mockDates) Normalize(ctx context.Context, phrase string) (model.Date, error) {
	return m.NormalizeFunc(ctx, phrase)
}

type mockBackfill struct {
	RunFunc func(ctx context.Context, month string, progress func(string)) error
}

func (m *mockBackfill) Run(ctx context.Context, month string, progress func(string)) error {
	if m.RunFunc == nil {
		return errors.New("unexpected Run call")
	}
	return m.RunFunc(ctx, month, progress)
}

type writeOp struct {
	kind   string
	tab    string
	row    int
	values []string
}

type mockSheets struct {
	ReadFunc func(ctx context.Context, tab string) ([][]string, error)
	writes   []writeOp
}

func (m *mockSheets) Read(ctx context.Context, tab string) ([][]string, error) {
	return m.ReadFunc(ctx, tab)
}

func (m *mockSheets) Update(ctx context.Context, tab string, rowIndex int, values []string) error {
	m.writes = append(m.writes, writeOp{kind: "update", tab: tab, row: rowIndex, values: values})
	return nil
}

func (m *mockSheets) InsertBlankRow(ctx context.Context, tab string, rowIndex int) error {
	m.writes = append(m.writes, writeOp{kind: "insert", tab: tab, row: rowIndex})
	return nil
}

func (m *mockSheets) Append(ctx context.Context, tab string, values []string) error {
	m.writes = append(m.writes, writeOp{kind: "append", tab: tab, values: values})
	return nil
}

type mockReceipts struct {
	UploadFunc func(ctx context.Context, localPath, displayName, folderID string) (string, error)
	calls      int
}

func (m *mockReceipts) Upload(ctx context.Context, localPath, displayName, folderID string) (string, error) {
	m.calls++
	if m.UploadFunc == nil {
		return "", errors.New("unexpected Upload call")
	}
	return m.UploadFunc(ctx, localPath, displayName, folderID)
}

type mockArchive struct {
	stored int
}

func (m *mockArchive) Store(ctx context.Context, objectName string, data []byte) (string, error) {
	m.stored++
	return "gs://bucket/receipts/" + objectName, nil
}

type fixture struct {
	chat     *mockChat
	vision   *mockVision
	intents  *mockIntents
	dates    *mockDates
	backfill *mockBackfill
	sheets   *mockSheets
	receipts *mockReceipts
	archive  *mockArchive
	co       *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chat:     &mockChat{},
		vision:   &mockVision{},
		intents:  &mockIntents{},
		dates:    &mockDates{},
		backfill: &mockBackfill{},
		sheets:   &mockSheets{},
		receipts: &mockReceipts{},
		archive:  &mockArchive{},
	}
	f.co = New(f.chat, f.vision, f.intents, f.dates, f.backfill, f.sheets, f.receipts, f.archive, Config{
		ExpensesFolderID: "folder-exp",
		EarningsFolderID: "folder-earn",
		TmpDir:           t.TempDir(),
	})
	return f
}

func emptySheet() [][]string {
	return [][]string{{"Date", "Expense", "CAD", "USD", "Earning", "CAD", "USD", "", "Fee USD", "Fee CAD", "Receipt", "Receipt"}}
}

func june13(y int) model.Date {
	return model.Date{Day: 13, Month: "June", Year: y}
}

func TestHandleTextRecordsTransaction(t *testing.T) {
	f := newFixture(t)
	f.intents.ExtractFunc = func(ctx context.Context, text string) (intent.Result, error) {
		if text != "spent 6.66 for capcut on june 13" {
			t.Fatalf("Extract text = %q", text)
		}
		return intent.Result{Kind: intent.KindRecord, Tx: model.Transaction{
			Type:     model.TypeExpense,
			Amount:   decimal.RequireFromString("6.66"),
			Currency: "CAD",
			Name:     "capcut",
			Date:     june13(2025),
		}}, nil
	}
	f.sheets.ReadFunc = func(ctx context.Context, tab string) ([][]string, error) {
		if tab != "Juin" {
			t.Fatalf("Read tab = %q, want Juin", tab)
		}
		return emptySheet(), nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "spent 6.66 for capcut on june 13"})

	if len(f.sheets.writes) != 1 || f.sheets.writes[0].kind != "append" {
		t.Fatalf("writes = %+v, want a single append", f.sheets.writes)
	}
	row := f.sheets.writes[0].values
	if row[0] != "2025-06-13" || row[1] != "capcut" || row[2] != "6.66" {
		t.Errorf("appended row = %v", row)
	}
	if !strings.HasPrefix(f.chat.lastReply(t), "✅") {
		t.Errorf("reply = %q, want an acknowledgement", f.chat.lastReply(t))
	}
}

func TestHandleTextConversionIntent(t *testing.T) {
	f := newFixture(t)
	f.intents.ExtractFunc = func(ctx context.Context, text string) (intent.Result, error) {
		return intent.Result{Kind: intent.KindConvert, Month: "June"}, nil
	}
	f.backfill.RunFunc = func(ctx context.Context, month string, progress func(string)) error {
		if month != "June" {
			t.Fatalf("backfill month = %q", month)
		}
		progress("Converted 2 USD value(s) in Juin.")
		return nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "convert missing usd for june"})

	if got := f.chat.lastReply(t); !strings.Contains(got, "Converted 2") {
		t.Errorf("reply = %q, want the progress line", got)
	}
}

func TestHandleTextUnrecognized(t *testing.T) {
	f := newFixture(t)
	f.intents.ExtractFunc = func(ctx context.Context, text string) (intent.Result, error) {
		return intent.Result{Kind: intent.KindUnknown}, nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "hello there"})

	if got := f.chat.lastReply(t); !strings.Contains(got, "couldn't understand") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleTextErrorReplies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"user input", model.UserInputf("Invalid date: never"), "⚠️ Invalid date: never"},
		{"external", errors.New("api unavailable"), "❌"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.intents.ExtractFunc = func(ctx context.Context, text string) (intent.Result, error) {
				return intent.Result{}, tt.err
			}
			f.co.Handle(context.Background(), Message{ChatID: 7, Text: "whatever"})
			if got := f.chat.lastReply(t); !strings.HasPrefix(got, tt.want) {
				t.Errorf("reply = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestHandleCommandBackfill(t *testing.T) {
	f := newFixture(t)
	ran := false
	f.backfill.RunFunc = func(ctx context.Context, month string, progress func(string)) error {
		ran = true
		if month != "June" {
			t.Fatalf("month = %q", month)
		}
		return nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, Command: "convert_missing_usd", CommandArgs: "June"})

	if !ran {
		t.Fatal("backfill was not run")
	}
}

func TestHandleCommandBackfillNoMonth(t *testing.T) {
	f := newFixture(t)
	f.co.Handle(context.Background(), Message{ChatID: 7, Command: "convert_missing_usd"})
	if got := f.chat.lastReply(t); !strings.Contains(got, "Usage") {
		t.Errorf("reply = %q", got)
	}
}

func photoFixture(t *testing.T, ocr llm.ReceiptResult) *fixture {
	t.Helper()
	f := newFixture(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(srv.Close)

	f.chat.FileURLFunc = func(ctx context.Context, fileID string) (string, error) {
		return srv.URL + "/file/" + fileID, nil
	}
	f.vision.ExtractReceiptFunc = func(ctx context.Context, image []byte, mimeType string) (llm.ReceiptResult, error) {
		if string(image) != "jpeg-bytes" {
			t.Fatalf("OCR got %q", image)
		}
		return ocr, nil
	}
	f.dates.NormalizeFunc = func(ctx context.Context, phrase string) (model.Date, error) {
		return model.Date{Day: 3, Month: "July", Year: 2025}, nil
	}
	f.sheets.ReadFunc = func(ctx context.Context, tab string) ([][]string, error) {
		return emptySheet(), nil
	}
	return f
}

func TestHandlePhotoWithCaptionRecordsDirectly(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Amount: 12.34, Currency: "CAD", Name: "Cafe", Date: "3 July", Valid: true,
	})
	f.receipts.UploadFunc = func(ctx context.Context, localPath, displayName, folderID string) (string, error) {
		if folderID != "folder-exp" {
			t.Fatalf("folderID = %q, want folder-exp", folderID)
		}
		return "https://drive/receipt-1", nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1", Caption: "expense"})

	if f.archive.stored != 1 {
		t.Errorf("archive stores = %d, want 1", f.archive.stored)
	}
	if len(f.sheets.writes) != 1 {
		t.Fatalf("writes = %+v", f.sheets.writes)
	}
	row := f.sheets.writes[0].values
	if row[1] != "Cafe" || row[2] != "12.34" || row[10] != "https://drive/receipt-1" {
		t.Errorf("row = %v", row)
	}
}

func TestHandlePhotoFeeSkipsUpload(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Type: "fee", Amount: 1.20, Currency: "USD", Name: "PayPal", Date: "5 June", Valid: true,
	})

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1"})

	if f.receipts.calls != 0 {
		t.Errorf("upload calls = %d, want 0", f.receipts.calls)
	}
	if len(f.sheets.writes) != 1 {
		t.Fatalf("writes = %+v", f.sheets.writes)
	}
	row := f.sheets.writes[0].values
	if row[8] != "$1.2" && row[8] != "$1.20" {
		t.Errorf("fee USD cell = %q", row[8])
	}
	if row[10] != "" || row[11] != "" {
		t.Errorf("fee row carries a receipt link: %v", row)
	}
}

func TestHandlePhotoParksThenClarifies(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Amount: 12.34, Currency: "CAD", Name: "Cafe", Date: "3 July", Valid: true,
	})
	f.receipts.UploadFunc = func(ctx context.Context, localPath, displayName, folderID string) (string, error) {
		return "https://drive/receipt-2", nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1"})

	if got := f.chat.lastReply(t); !strings.Contains(got, "expense") || !strings.Contains(got, "earning") {
		t.Fatalf("reply = %q, want a clarification question", got)
	}
	if len(f.sheets.writes) != 0 {
		t.Fatalf("writes before clarification = %+v", f.sheets.writes)
	}

	// A non-answer keeps the slot parked.
	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "what do you mean"})
	if got := f.chat.lastReply(t); !strings.Contains(got, "exactly one") {
		t.Fatalf("reminder reply = %q", got)
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "expense"})
	if len(f.sheets.writes) != 1 {
		t.Fatalf("writes after clarification = %+v", f.sheets.writes)
	}
	row := f.sheets.writes[0].values
	if row[1] != "Cafe" || row[10] != "https://drive/receipt-2" {
		t.Errorf("row = %v", row)
	}
	if _, ok := f.co.pending.Get(7); ok {
		t.Error("pending slot was not released")
	}
}

func TestClarificationShortCircuitsIntent(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Amount: 5, Currency: "CAD", Name: "Shop", Date: "3 July", Valid: true,
	})
	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1"})

	// intents.ExtractFunc is unset; a call would fail the handling path.
	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "spent 9.99 on socks"})

	if got := f.chat.lastReply(t); !strings.Contains(got, "exactly one") {
		t.Errorf("reply = %q, want the type reminder", got)
	}
}

func TestNewPhotoDisplacesPending(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Amount: 5, Currency: "CAD", Name: "Shop", Date: "3 July", Valid: true,
	})

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1"})
	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f2"})

	pending, ok := f.co.pending.Get(7)
	if !ok {
		t.Fatal("no pending image")
	}
	if pending.FileID != "f2" {
		t.Errorf("pending file = %q, want f2", pending.FileID)
	}
}

func TestTypeKeywordsWholeWordsOnly(t *testing.T) {
	tests := []struct {
		text string
		want []model.TxType
	}{
		{"expense", []model.TxType{model.TypeExpense}},
		{"it was an expense", []model.TxType{model.TypeExpense}},
		{"Earning", []model.TxType{model.TypeEarning}},
		{"paypal fee", []model.TxType{model.TypeFee}},
		{"paypal_fee", []model.TxType{model.TypeFee}},
		{"fee", []model.TxType{model.TypeFee}},
		{"coffee", nil},
		{"it was coffee", nil},
		{"expenses report", nil},
		{"toffee earning", []model.TxType{model.TypeEarning}},
		{"expense or earning", []model.TxType{model.TypeExpense, model.TypeEarning}},
		{"", nil},
	}
	for _, tt := range tests {
		got := typeKeywords(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("typeKeywords(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("typeKeywords(%q) = %v, want %v", tt.text, got, tt.want)
				break
			}
		}
	}
}

func TestHandlePhotoCoffeeCaptionParks(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Amount: 4.50, Currency: "CAD", Name: "Cafe", Date: "3 July", Valid: true,
	})

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1", Caption: "coffee"})

	if len(f.sheets.writes) != 0 {
		t.Fatalf("writes = %+v, want none before clarification", f.sheets.writes)
	}
	if _, ok := f.co.pending.Get(7); !ok {
		t.Fatal("receipt was not parked for clarification")
	}

	// A reply that merely contains the letters "fee" is not an answer.
	f.co.Handle(context.Background(), Message{ChatID: 7, Text: "it was coffee"})
	if got := f.chat.lastReply(t); !strings.Contains(got, "exactly one") {
		t.Fatalf("reply = %q, want the type reminder", got)
	}
	if len(f.sheets.writes) != 0 {
		t.Fatalf("writes = %+v, want none", f.sheets.writes)
	}
}

func TestCommandWhilePendingShortCircuits(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{
		Amount: 5, Currency: "CAD", Name: "Shop", Date: "3 July", Valid: true,
	})
	f.backfill.RunFunc = func(ctx context.Context, month string, progress func(string)) error {
		t.Fatal("backfill must not run while a receipt awaits its type")
		return nil
	}

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1"})
	f.co.Handle(context.Background(), Message{ChatID: 7, Command: "convert_missing_usd", CommandArgs: "June"})

	if got := f.chat.lastReply(t); !strings.Contains(got, "exactly one") {
		t.Fatalf("reply = %q, want the type reminder", got)
	}
	if _, ok := f.co.pending.Get(7); !ok {
		t.Error("pending slot was released by the command")
	}
}

func TestHandlePhotoInvalidOCR(t *testing.T) {
	f := photoFixture(t, llm.ReceiptResult{Valid: false})

	f.co.Handle(context.Background(), Message{ChatID: 7, PhotoFileID: "f1"})

	if got := f.chat.lastReply(t); !strings.HasPrefix(got, "⚠️") {
		t.Errorf("reply = %q, want a warning", got)
	}
	if len(f.sheets.writes) != 0 {
		t.Errorf("writes = %+v, want none", f.sheets.writes)
	}
}
