// Package bot is the top of the ingestion pipeline: it receives chat
// messages, picks a path for each (clarification reply, text intent, photo
// OCR, slash command) and drives the extraction, placement and write steps,
// replying to the chat at the end of every path.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tabkeeper/internal/drive"
	"tabkeeper/internal/intent"
	"tabkeeper/internal/llm"
	"tabkeeper/internal/logger"
	"tabkeeper/internal/model"
	"tabkeeper/internal/months"
	"tabkeeper/internal/sheet"
)

// Message is one incoming chat event, already flattened by the transport
// adapter. Command is set without the leading slash when the text was a
// slash command.
type Message struct {
	ChatID      int64
	Text        string
	Caption     string
	PhotoFileID string
	Command     string
	CommandArgs string
}

// ChatClient sends replies and resolves photo file IDs to download URLs.
type ChatClient interface {
	Send(chatID int64, text string) error
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Vision is the receipt-OCR slice of the model client.
type Vision interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (llm.ReceiptResult, error)
}

// IntentService classifies free-form text messages.
type IntentService interface {
	Extract(ctx context.Context, text string) (intent.Result, error)
}

// DateNormalizer resolves short date phrases.
type DateNormalizer interface {
	Normalize(ctx context.Context, phrase string) (model.Date, error)
}

// Backfiller converts missing USD values for one month.
type Backfiller interface {
	Run(ctx context.Context, month string, progress func(string)) error
}

// SheetService is the tabular backend.
type SheetService interface {
	Read(ctx context.Context, tab string) ([][]string, error)
	Update(ctx context.Context, tab string, rowIndex int, values []string) error
	InsertBlankRow(ctx context.Context, tab string, rowIndex int) error
	Append(ctx context.Context, tab string, values []string) error
}

// ReceiptStore uploads receipt images and returns a shareable URL.
type ReceiptStore interface {
	Upload(ctx context.Context, localPath, displayName, folderID string) (string, error)
}

// RawArchiver keeps a copy of every receipt blob. Failures are logged,
// never surfaced.
type RawArchiver interface {
	Store(ctx context.Context, objectName string, data []byte) (string, error)
}

// Config carries the coordinator's non-service parameters.
type Config struct {
	ExpensesFolderID string
	EarningsFolderID string
	TmpDir           string
}

// Coordinator dispatches one chat message at a time per chat.
type Coordinator struct {
	chat     ChatClient
	vision   Vision
	intents  IntentService
	dates    DateNormalizer
	backfill Backfiller
	sheets   SheetService
	receipts ReceiptStore
	archive  RawArchiver
	pending  *pendingStore
	http     *http.Client
	cfg      Config
}

// New creates a Coordinator.
func New(chat ChatClient, vision Vision, intents IntentService, dates DateNormalizer, backfill Backfiller, sheets SheetService, receipts ReceiptStore, archive RawArchiver, cfg Config) *Coordinator {
	return &Coordinator{
		chat:     chat,
		vision:   vision,
		intents:  intents,
		dates:    dates,
		backfill: backfill,
		sheets:   sheets,
		receipts: receipts,
		archive:  archive,
		pending:  newPendingStore(),
		http:     &http.Client{Timeout: 60 * time.Second},
		cfg:      cfg,
	}
}

const (
	replyUnrecognized = "⚠️ I couldn't understand the transaction. Try something like: spent 6.66 for capcut on june 13"
	replyAskType      = "I read the receipt but couldn't tell what kind of transaction it is. Reply with \"expense\", \"earning\" or \"paypal fee\"."
	replyTypeReminder = "Please reply with exactly one of \"expense\", \"earning\" or \"paypal fee\"."
	replyHelp         = "Send me a transaction in plain words (\"spent 6.66 for capcut on june 13\") or a photo of a receipt. " +
		"Use /convert_missing_usd <month> to fill in missing CAD values for USD amounts."
)

// Handle processes one message end to end and always answers the chat.
// Errors never escape; they become chat replies.
func (c *Coordinator) Handle(ctx context.Context, msg Message) {
	log := logger.FromContext(ctx).With().Int64("chat_id", msg.ChatID).Logger()
	ctx = logger.WithContext(ctx, log)

	switch {
	case msg.PhotoFileID != "":
		// A new photo may displace a parked one; the pending check does
		// not apply here.
		c.handlePhoto(ctx, msg)
	case msg.Command != "" || msg.Text != "":
		// A parked receipt takes priority over every text-bearing event,
		// commands included.
		if _, ok := c.pending.Get(msg.ChatID); ok {
			c.handleClarification(ctx, msg.ChatID, clarificationText(msg))
			return
		}
		if msg.Command != "" {
			c.handleCommand(ctx, msg)
		} else {
			c.handleText(ctx, msg.ChatID, msg.Text)
		}
	}
}

// clarificationText is what the keyword scan sees for a text-bearing event.
func clarificationText(msg Message) string {
	if msg.Command != "" {
		return strings.TrimSpace("/" + msg.Command + " " + msg.CommandArgs)
	}
	return msg.Text
}

func (c *Coordinator) handleCommand(ctx context.Context, msg Message) {
	switch msg.Command {
	case "convert_missing_usd":
		month := strings.TrimSpace(msg.CommandArgs)
		if month == "" {
			c.reply(ctx, msg.ChatID, "⚠️ Usage: /convert_missing_usd <month>")
			return
		}
		c.runBackfill(ctx, msg.ChatID, month)
	case "start", "help":
		c.reply(ctx, msg.ChatID, replyHelp)
	default:
		c.reply(ctx, msg.ChatID, "⚠️ Unknown command. "+replyHelp)
	}
}

func (c *Coordinator) handleText(ctx context.Context, chatID int64, text string) {
	res, err := c.intents.Extract(ctx, text)
	if err != nil {
		c.replyError(ctx, chatID, err)
		return
	}
	switch res.Kind {
	case intent.KindConvert:
		c.runBackfill(ctx, chatID, res.Month)
	case intent.KindRecord:
		c.recordAndAck(ctx, chatID, res.Tx)
	default:
		c.reply(ctx, chatID, replyUnrecognized)
	}
}

func (c *Coordinator) runBackfill(ctx context.Context, chatID int64, month string) {
	err := c.backfill.Run(ctx, month, func(line string) {
		c.reply(ctx, chatID, line)
	})
	if err != nil {
		c.replyError(ctx, chatID, err)
	}
}

// handlePhoto downloads the receipt, runs OCR and either records the
// transaction directly or parks it for type clarification. A new photo
// while one is parked displaces the parked one.
func (c *Coordinator) handlePhoto(ctx context.Context, msg Message) {
	log := logger.FromContext(ctx)

	c.reply(ctx, msg.ChatID, "📸 Reading the receipt...")

	raw, err := c.download(ctx, msg.PhotoFileID)
	if err != nil {
		c.replyError(ctx, msg.ChatID, err)
		return
	}

	if _, err := c.archive.Store(ctx, uuid.New().String()+".jpg", raw); err != nil {
		log.Warn().Err(err).Msg("receipt archive failed")
	}

	ocr, err := c.vision.ExtractReceipt(ctx, raw, "image/jpeg")
	if err != nil {
		c.replyError(ctx, msg.ChatID, err)
		return
	}
	tx, err := c.transactionFromOCR(ctx, ocr)
	if err != nil {
		c.replyError(ctx, msg.ChatID, err)
		return
	}

	// The model's own type guess is trusted for fees only; expense vs
	// earning comes from the caption or a follow-up reply.
	if t, ok := model.ParseTxType(ocr.Type); ok && t == model.TypeFee {
		tx.Type = model.TypeFee
		c.finalizeImage(ctx, msg.ChatID, tx, raw)
		return
	}
	if kinds := typeKeywords(msg.Caption); len(kinds) == 1 {
		tx.Type = kinds[0]
		c.finalizeImage(ctx, msg.ChatID, tx, raw)
		return
	}

	prior := c.pending.Put(msg.ChatID, &model.PendingImage{
		FileID: msg.PhotoFileID,
		Parsed: tx,
		Raw:    raw,
	})
	if prior != nil {
		log.Info().Str("file_id", prior.FileID).Msg("displaced a pending receipt")
	}
	c.reply(ctx, msg.ChatID, replyAskType)
}

// handleClarification consumes the chat's pending receipt. The slot is
// released whether finalization succeeds or fails; only a reply without a
// usable type keyword keeps it parked.
func (c *Coordinator) handleClarification(ctx context.Context, chatID int64, text string) {
	kinds := typeKeywords(text)
	if len(kinds) != 1 {
		c.reply(ctx, chatID, replyTypeReminder)
		return
	}
	pending, ok := c.pending.Take(chatID)
	if !ok {
		c.handleText(ctx, chatID, text)
		return
	}
	tx := pending.Parsed
	tx.Type = kinds[0]
	c.finalizeImage(ctx, chatID, tx, pending.Raw)
}

// finalizeImage uploads the receipt, records the row and acknowledges.
// The temp file exists only for the duration of the upload.
func (c *Coordinator) finalizeImage(ctx context.Context, chatID int64, tx model.Transaction, raw []byte) {
	log := logger.FromContext(ctx)

	// Fees carry no receipt link; only columns for the amount are written.
	if tx.Type != model.TypeFee {
		path := filepath.Join(c.cfg.TmpDir, uuid.New().String()+".jpg")
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			c.replyError(ctx, chatID, fmt.Errorf("finalizeImage: write temp file: %w", err))
			return
		}
		defer func() {
			if err := os.Remove(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("temp file cleanup failed")
			}
		}()

		folder := drive.FolderFor(tx.DisplayName(), c.cfg.ExpensesFolderID, c.cfg.EarningsFolderID)
		link, err := c.receipts.Upload(ctx, path, tx.DisplayName()+" "+tx.Date.ISO(), folder)
		if err != nil {
			c.replyError(ctx, chatID, err)
			return
		}
		tx.ReceiptLink = link
	}

	c.recordAndAck(ctx, chatID, tx)
}

func (c *Coordinator) recordAndAck(ctx context.Context, chatID int64, tx model.Transaction) {
	tab, err := c.record(ctx, tx)
	if err != nil {
		c.replyError(ctx, chatID, err)
		return
	}
	c.reply(ctx, chatID, fmt.Sprintf("✅ Recorded %s: %s %s %s on %s (tab %s)",
		tx.Type, tx.DisplayName(), tx.Amount, tx.Currency, tx.Date.ISO(), tab))
}

// record reads the month tab, plans the row placement and writes exactly
// one column group. Returns the tab it wrote to.
func (c *Coordinator) record(ctx context.Context, tx model.Transaction) (string, error) {
	tab := months.TabName(tx.Date.Month)

	rows, err := c.sheets.Read(ctx, tab)
	if err != nil {
		return "", fmt.Errorf("record: load %q: %w", tab, err)
	}

	p := sheet.PlanPlacement(rows, tx.Date, tx.Type)
	switch p.Kind {
	case sheet.PlaceUpdate:
		values := sheet.MapColumns(rows[p.Row], tx, tx.ReceiptLink)
		if err := c.sheets.Update(ctx, tab, p.Row, values); err != nil {
			return "", fmt.Errorf("record: update row %d: %w", p.Row, err)
		}
	case sheet.PlaceInsert:
		if err := c.sheets.InsertBlankRow(ctx, tab, p.Row); err != nil {
			return "", fmt.Errorf("record: insert row %d: %w", p.Row, err)
		}
		values := sheet.MapColumns(nil, tx, tx.ReceiptLink)
		if err := c.sheets.Update(ctx, tab, p.Row, values); err != nil {
			return "", fmt.Errorf("record: fill inserted row %d: %w", p.Row, err)
		}
	default:
		values := sheet.MapColumns(nil, tx, tx.ReceiptLink)
		if err := c.sheets.Append(ctx, tab, values); err != nil {
			return "", fmt.Errorf("record: append: %w", err)
		}
	}
	return tab, nil
}

// transactionFromOCR validates the OCR payload and resolves its date. The
// type is left unset; the caller decides it.
func (c *Coordinator) transactionFromOCR(ctx context.Context, ocr llm.ReceiptResult) (model.Transaction, error) {
	if !ocr.Valid {
		return model.Transaction{}, model.UserInputf("I couldn't read a transaction from that receipt. Try a clearer photo.")
	}
	amount := decimal.NewFromFloat(ocr.Amount)
	if !amount.IsPositive() {
		return model.Transaction{}, model.UserInputf("The receipt amount didn't parse. Try a clearer photo.")
	}
	currency := strings.ToUpper(strings.TrimSpace(ocr.Currency))
	if currency != "USD" {
		currency = "CAD"
	}
	date, err := c.dates.Normalize(ctx, ocr.Date)
	if err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		Amount:   amount,
		Currency: currency,
		Name:     strings.TrimSpace(ocr.Name),
		Date:     date,
	}, nil
}

// download exchanges a photo file ID for its blob.
func (c *Coordinator) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.chat.FileURL(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("download: resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: fetch blob: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: fetch blob: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: read blob: %w", err)
	}
	return data, nil
}

// Type keywords are matched as whole words only, so "coffee" is not a fee
// and "expenses" is not an expense.
var (
	expenseKeyword = regexp.MustCompile(`\bexpense\b`)
	earningKeyword = regexp.MustCompile(`\bearning\b`)
	feeKeyword     = regexp.MustCompile(`\b(paypal[ _]fee|fee)\b`)
)

// typeKeywords lists the transaction types named in a text fragment.
func typeKeywords(text string) []model.TxType {
	lower := strings.ToLower(text)
	var out []model.TxType
	if expenseKeyword.MatchString(lower) {
		out = append(out, model.TypeExpense)
	}
	if earningKeyword.MatchString(lower) {
		out = append(out, model.TypeEarning)
	}
	if feeKeyword.MatchString(lower) {
		out = append(out, model.TypeFee)
	}
	return out
}

func (c *Coordinator) reply(ctx context.Context, chatID int64, text string) {
	if err := c.chat.Send(chatID, text); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("chat reply failed")
	}
}

// replyError turns an error into a chat message. User mistakes get a
// warning, everything else an external-failure notice.
func (c *Coordinator) replyError(ctx context.Context, chatID int64, err error) {
	log := logger.FromContext(ctx)
	log.Warn().Err(err).Msg("message handling failed")
	if model.IsUserInput(err) {
		c.reply(ctx, chatID, "⚠️ "+userMessage(err))
		return
	}
	c.reply(ctx, chatID, "❌ Something went wrong, please try again later.")
}

func userMessage(err error) string {
	var uerr *model.UserInputError
	if errors.As(err, &uerr) {
		return uerr.Msg
	}
	return err.Error()
}
