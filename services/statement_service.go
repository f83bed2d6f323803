package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/anjiri1684/logoped_crm/notifications"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

var statementTemplate = template.Must(template.New("statement").Funcs(template.FuncMap{
	"money": notifications.FormatMinor,
	"date":  func(t time.Time) string { return t.Format("02.01.2006") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; font-size: 12px; margin: 32px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border-bottom: 1px solid #ddd; padding: 4px 6px; text-align: left; }
td.num, th.num { text-align: right; }
.totals td { font-weight: bold; }
</style>
</head>
<body>
<h1>Settlement statement</h1>
<p>{{.Therapist}}<br>{{.Range}}</p>
<table>
<tr><th>Date</th><th>Paid by</th><th class="num">Price</th><th class="num">Share</th><th class="num">Cash held</th></tr>
{{range .Lessons}}<tr><td>{{date .StartsAt}}</td><td>{{.PaidBy}}</td><td class="num">{{money .Price}}</td><td class="num">{{money .Share}}</td><td class="num">{{money .CashHeld}}</td></tr>
{{else}}<tr><td colspan="5">No settled lessons in this period.</td></tr>
{{end}}</table>
<table class="totals">
<tr><td>Therapist share</td><td class="num">{{money .TShare}}</td></tr>
<tr><td>Cash held</td><td class="num">{{money .CashTher}}</td></tr>
<tr><td>Paid out</td><td class="num">{{money .Payouts}}</td></tr>
<tr><td>Net</td><td class="num">{{money .Net}}</td></tr>
</table>
<p>Generated {{.GeneratedAt}}</p>
</body>
</html>`))

// Statement printing and upload are swapped out in tests.
var (
	printPDF  = generatePDFFromHTML
	uploadPDF = uploadToCloudinary
)

type Statement struct {
	URL         string    `json:"url"`
	Period      Period    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildStatement renders the therapist's settlement for p as a PDF and uploads it, returning
// the document URL.
func BuildStatement(ctx context.Context, actor access.Identity, userID uuid.UUID, p Period) (Statement, error) {
	settlement, err := PreviewSettlement(ctx, actor, userID, p)
	if err != nil {
		return Statement{}, err
	}

	var therapist models.User
	if err := database.DB.WithContext(ctx).First(&therapist, "id = ? AND role = ?", userID, models.RoleLogoped).Error; err != nil {
		if isRecordNotFound(err) {
			return Statement{}, notFound("therapist")
		}
		return Statement{}, storeErr("load therapist", err)
	}

	now := time.Now()
	html, err := renderStatementHTML(therapist.FullName, settlement, now)
	if err != nil {
		return Statement{}, fmt.Errorf("render statement: %w", err)
	}

	pdf, err := printPDF(ctx, html)
	if err != nil {
		slog.Error("failed to print statement", "user_id", userID, "error", err)
		return Statement{}, fmt.Errorf("print statement: %w", err)
	}

	url, err := uploadPDF(ctx, pdf, userID.String())
	if err != nil {
		slog.Error("failed to upload statement", "user_id", userID, "error", err)
		return Statement{}, fmt.Errorf("upload statement: %w", err)
	}

	slog.Info("statement generated", "user_id", userID, "period", p.Name, "url", url)
	return Statement{URL: url, Period: p, GeneratedAt: now}, nil
}

func renderStatementHTML(therapistName string, s Settlement, generatedAt time.Time) (string, error) {
	rangeLabel := "All time"
	if s.Period.Bounded() {
		rangeLabel = fmt.Sprintf("%s - %s", s.Period.From.Format("02.01.2006"), s.Period.To.Add(-time.Second).Format("02.01.2006"))
	}

	data := struct {
		Settlement
		Therapist   string
		Range       string
		GeneratedAt string
	}{
		Settlement:  s,
		Therapist:   therapistName,
		Range:       rangeLabel,
		GeneratedAt: generatedAt.Format("02.01.2006 15:04"),
	}

	var rendered bytes.Buffer
	if err := statementTemplate.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

func generatePDFFromHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancelTimeout()

	var pdfBuffer []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadToCloudinary(ctx context.Context, fileBytes []byte, userID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("statements/%s_%s", userID, uuid.New().String()),
		Folder:       "logoped_statements",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}
	return uploadResult.SecureURL, nil
}
