// Package playbill decodes play catalogs and invoices from their JSON documents.
package playbill

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/theater-billing/internal/theater"
)

// ErrInvalidDocument wraps decoding and validation failures.
var ErrInvalidDocument = errors.New("invalid document")

var validate = validator.New(validator.WithRequiredStructEnabled())

type playDoc struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required"`
}

type performanceDoc struct {
	PlayID   string `json:"playID" validate:"required"`
	Audience *int   `json:"audience" validate:"required,gte=0"`
}

type invoiceDoc struct {
	Customer     string           `json:"customer" validate:"required"`
	Performances []performanceDoc `json:"performances" validate:"dive"`
}

// DecodePlays reads a JSON object mapping play ids to plays.
func DecodePlays(r io.Reader) (theater.Catalog, error) {
	var docs map[string]playDoc
	if err := strictDecode(r, &docs); err != nil {
		return nil, err
	}
	catalog := make(theater.Catalog, len(docs))
	for id, doc := range docs {
		if err := validate.Struct(doc); err != nil {
			return nil, fmt.Errorf("%w: play %q: %v", ErrInvalidDocument, id, err)
		}
		catalog[id] = theater.Play{Name: doc.Name, Type: doc.Type}
	}
	return catalog, nil
}

// DecodeInvoices reads either a JSON array of invoices or a single invoice object.
func DecodeInvoices(r io.Reader) ([]theater.Invoice, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read invoices: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	var docs []invoiceDoc
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single invoiceDoc
		if err := strictDecode(bytes.NewReader(trimmed), &single); err != nil {
			return nil, err
		}
		docs = []invoiceDoc{single}
	} else if err := strictDecode(bytes.NewReader(trimmed), &docs); err != nil {
		return nil, err
	}

	invoices := make([]theater.Invoice, 0, len(docs))
	for i, doc := range docs {
		inv, err := doc.toInvoice()
		if err != nil {
			return nil, fmt.Errorf("invoice %d: %w", i, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// DecodeInvoice reads exactly one invoice object.
func DecodeInvoice(r io.Reader) (theater.Invoice, error) {
	var doc invoiceDoc
	if err := strictDecode(r, &doc); err != nil {
		return theater.Invoice{}, err
	}
	return doc.toInvoice()
}

// LoadPlaysFile decodes the plays document at path.
func LoadPlaysFile(path string) (theater.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plays: %w", err)
	}
	defer f.Close()
	return DecodePlays(f)
}

// LoadInvoicesFile decodes the invoices document at path.
func LoadInvoicesFile(path string) ([]theater.Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open invoices: %w", err)
	}
	defer f.Close()
	return DecodeInvoices(f)
}

func (d invoiceDoc) toInvoice() (theater.Invoice, error) {
	if err := validate.Struct(d); err != nil {
		return theater.Invoice{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	perfs := make([]theater.Performance, 0, len(d.Performances))
	for _, p := range d.Performances {
		perfs = append(perfs, theater.Performance{PlayID: p.PlayID, Audience: *p.Audience})
	}
	return theater.Invoice{Customer: d.Customer, Performances: perfs}, nil
}

func strictDecode(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidDocument)
	}
	return nil
}
