package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type lineItemRequest struct {
	ID          string           `json:"id" validate:"omitempty,max=64"`
	Kind        string           `json:"kind" validate:"required"`
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

type documentRequest struct {
	CustomerID          string            `json:"customer_id" validate:"required,max=128"`
	Items               []lineItemRequest `json:"items" validate:"dive"`
	DiscountPercent     *decimal.Decimal  `json:"discount_percent"`
	VATRate             *decimal.Decimal  `json:"vat_rate"`
	Deduction           string            `json:"deduction_type" validate:"omitempty,oneof=none rot rut"`
	PersonalNumber      string            `json:"personal_number" validate:"omitempty,max=32"`
	PropertyDesignation string            `json:"property_designation" validate:"omitempty,max=200"`
}

func (req documentRequest) toInput() domain.DocumentInput {
	items := make([]domain.LineItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItemInput{
			ID:          item.ID,
			Kind:        domain.ItemKind(item.Kind),
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return domain.DocumentInput{
		CustomerID:      strings.TrimSpace(req.CustomerID),
		Items:           items,
		DiscountPercent: req.DiscountPercent,
		VATRate:         req.VATRate,
		Deduction:       domain.DeductionType(req.Deduction),
		Details: domain.DeductionDetails{
			PersonalNumber:      strings.TrimSpace(req.PersonalNumber),
			PropertyDesignation: strings.TrimSpace(req.PropertyDesignation),
		},
	}
}

type createQuoteRequest struct {
	documentRequest
	ValidUntil string `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
}

type createInvoiceRequest struct {
	documentRequest
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type invoiceFromQuoteRequest struct {
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// calculateRequest carries only pricing; the customer is irrelevant for totals.
type calculateRequest struct {
	Items           []lineItemRequest `json:"items" validate:"dive"`
	DiscountPercent *decimal.Decimal  `json:"discount_percent"`
	VATRate         *decimal.Decimal  `json:"vat_rate"`
	Deduction       string            `json:"deduction_type" validate:"omitempty,oneof=none rot rut"`
}

func (req calculateRequest) toInput() domain.DocumentInput {
	return documentRequest{
		Items:           req.Items,
		DiscountPercent: req.DiscountPercent,
		VATRate:         req.VATRate,
		Deduction:       req.Deduction,
	}.toInput()
}

type paymentRequest struct {
	PaidAt string          `json:"paid_at" validate:"required,datetime=2006-01-02"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required,oneof=bank_transfer bankgiro swish card cash"`
}

func (req paymentRequest) toPayment() (domain.Payment, error) {
	paidAt, err := parseDate("paid_at", req.PaidAt)
	if err != nil {
		return domain.Payment{}, err
	}
	return domain.Payment{
		PaidAt: *paidAt,
		Amount: req.Amount,
		Method: domain.PaymentMethod(req.Method),
	}, nil
}

type signatureRequest struct {
	SignerName      string `json:"signer_name" validate:"required,max=200"`
	SignatureBase64 string `json:"signature_base64"`
}

type declineRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type calculateResponse struct {
	Totals  domain.Totals `json:"totals"`
	Rounded domain.Totals `json:"rounded"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// decodeJSON reads one JSON object into dst and runs the struct validation.
// An empty body decodes as an empty object when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
		}
	}
	return validateRequest(dst)
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", err)
	}
	problems := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s: %s", fieldPath(ve.Namespace()), ve.Tag()))
	}
	return domain.WrapError(domain.ErrInvalidInput, "validate request", errors.New(strings.Join(problems, "; ")))
}

// fieldPath drops the root and embedded struct names from a validator namespace.
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return strings.TrimPrefix(rest, "documentRequest.")
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse "+field, err)
	}
	return &t, nil
}

// readSignature accepts a multipart form (signer_name + signature file) or a
// JSON body with a base64 encoded image.
func readSignature(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, []byte, error) {
	// room for the form envelope or base64 expansion
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*2)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return readMultipartSignature(r, maxBytes)
	}

	var req signatureRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return "", nil, err
	}
	image, err := base64.StdEncoding.DecodeString(req.SignatureBase64)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "decode signature", err)
	}
	return strings.TrimSpace(req.SignerName), image, nil
}

func readMultipartSignature(r *http.Request, maxBytes int64) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "parse signature form", err)
	}
	req := signatureRequest{SignerName: strings.TrimSpace(r.FormValue("signer_name"))}
	if err := validateRequest(&req); err != nil {
		return "", nil, err
	}

	file, _, err := r.FormFile("signature")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req.SignerName, nil, nil
		}
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "read signature", err)
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "read signature", err)
	}
	return req.SignerName, image, nil
}
