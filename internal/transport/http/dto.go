package http

import (
	"time"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/load_product"
)

// CreateProductRequest is the body of POST /api/v1/products.
type CreateProductRequest struct {
	InternalPO  string   `json:"internal_po"`
	ExternalPO  string   `json:"external_po"`
	Name        string   `json:"name"`
	CompanyName string   `json:"company_name"`
	FileHash    string   `json:"file_hash"`
	Units       []string `json:"units"`
}

// ChangeStatusRequest is the body of PUT .../units/{unit}/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// Unit is the HTTP view of one unit.
type Unit struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	// Timestamp is seconds since epoch, "" when never written, "unknown" after a failed read.
	Timestamp string `json:"timestamp"`
}

// Product is the HTTP view of a product.
type Product struct {
	InternalPO  string `json:"internal_po"`
	ExternalPO  string `json:"external_po"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	FileHash    string `json:"file_hash,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	IsCompleted bool   `json:"is_completed"`
	Units       []Unit `json:"units"`
}

// UnitFailure reports a unit that could not be read.
type UnitFailure struct {
	Unit  string `json:"unit"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ProductResponse wraps a loaded product.
type ProductResponse struct {
	Product  Product       `json:"product"`
	Partial  bool          `json:"partial"`
	Failures []UnitFailure `json:"failures,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Receipt is the HTTP view of a ledger receipt.
type Receipt struct {
	TxID      string `json:"tx_id"`
	Unit      string `json:"unit"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// ChangeStatusResponse is returned by PUT .../units/{unit}/status.
type ChangeStatusResponse struct {
	Product   Product `json:"product"`
	Receipt   Receipt `json:"receipt"`
	Completed bool    `json:"completed"`
	Drift     bool    `json:"drift,omitempty"`
	// CompletionError is set when the status was written but the completion check failed.
	CompletionError string `json:"completion_error,omitempty"`
}

// CompletionResponse is returned by POST .../completion.
type CompletionResponse struct {
	InternalPO string `json:"internal_po"`
	Completed  bool   `json:"completed"`
	Drift      bool   `json:"drift,omitempty"`
}

// ProductFailure reports a product left out of a listing.
type ProductFailure struct {
	InternalPO string `json:"internal_po"`
	Error      string `json:"error"`
}

// ListProductsResponse is returned by GET /api/v1/products.
type ListProductsResponse struct {
	Products  []Product        `json:"products"`
	Companies []string         `json:"companies"`
	Failures  []ProductFailure `json:"failures,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Message   string `json:"ledger_message,omitempty"`
	Retryable bool   `json:"retryable"`
}

func toProduct(p *domain.Product) Product {
	out := Product{
		InternalPO:  p.InternalPO(),
		ExternalPO:  p.ExternalPO(),
		Name:        p.Name(),
		CompanyName: p.CompanyName(),
		FileHash:    p.FileHash(),
		IsCompleted: p.IsCompleted(),
		Units:       make([]Unit, 0, len(p.Units())),
	}
	if ts, ok := p.CreatedAt().Unix(); ok {
		out.CreatedAt = time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}
	for _, u := range p.Units() {
		out.Units = append(out.Units, Unit{
			Name:      string(u.Name()),
			Status:    string(u.Status()),
			Timestamp: u.StatusTime().String(),
		})
	}
	return out
}

func toProductResponse(result *load_product.LoadResult, err error) ProductResponse {
	resp := ProductResponse{
		Product: toProduct(result.Product),
		Partial: result.Partial(),
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, UnitFailure{
			Unit:  string(f.Unit),
			Kind:  string(domain.KindOf(f.Err)),
			Error: f.Err.Error(),
		})
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func toReceipt(r contracts.Receipt) Receipt {
	return Receipt{
		TxID:      r.TxID,
		Unit:      string(r.Unit),
		Status:    string(r.Status),
		Timestamp: r.Timestamp,
	}
}
