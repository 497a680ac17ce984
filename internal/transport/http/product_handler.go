package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/filter_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_products"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/change_unit_status"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/check_completion"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/create_product"
	"github.com/light-bringer/worktrack-service/internal/app/product/usecases/load_product"
)

// IdentityHeader carries the opaque acting identity for writes.
const IdentityHeader = "X-Acting-Identity"

// ProductHandler serves the product API.
// It's a thin coordinator that delegates to use cases and queries.
type ProductHandler struct {
	// Commands
	createProduct    *create_product.Interactor
	changeUnitStatus *change_unit_status.Interactor
	checkCompletion  *check_completion.Interactor

	// Queries
	loadProduct  *load_product.Interactor
	listProducts *list_products.Query

	logger *slog.Logger
}

// NewProductHandler creates a new HTTP product handler.
func NewProductHandler(
	createProduct *create_product.Interactor,
	changeUnitStatus *change_unit_status.Interactor,
	checkCompletion *check_completion.Interactor,
	loadProduct *load_product.Interactor,
	listProducts *list_products.Query,
	logger *slog.Logger,
) *ProductHandler {
	return &ProductHandler{
		createProduct:    createProduct,
		changeUnitStatus: changeUnitStatus,
		checkCompletion:  checkCompletion,
		loadProduct:      loadProduct,
		listProducts:     listProducts,
		logger:           logger,
	}
}

func callOptions(r *http.Request) contracts.CallOptions {
	return contracts.CallOptions{ActingIdentity: r.Header.Get(IdentityHeader)}
}

func (h *ProductHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if domain.KindOf(err) == domain.KindInternal {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	writeError(w, err)
}

// CreateProduct handles POST /api/v1/products.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, domain.NewLedgerError("CreateProduct", domain.KindInvalidInput, "invalid json", err))
		return
	}

	product, err := h.createProduct.Execute(r.Context(), &create_product.Request{
		InternalPO:  body.InternalPO,
		ExternalPO:  body.ExternalPO,
		Name:        body.Name,
		CompanyName: body.CompanyName,
		FileHash:    body.FileHash,
		Units:       body.Units,
		Options:     callOptions(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProduct(product))
}

// GetProduct handles GET /api/v1/products/{internalPO}.
// A partial load is still a 200; failed units are listed.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	result, err := h.loadProduct.Execute(r.Context(), chi.URLParam(r, "internalPO"))
	if result == nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(result, err))
}

// ChangeUnitStatus handles PUT /api/v1/products/{internalPO}/units/{unit}/status.
func (h *ProductHandler) ChangeUnitStatus(w http.ResponseWriter, r *http.Request) {
	var body ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, domain.NewLedgerError("UpdateUnitStatus", domain.KindInvalidInput, "invalid json", err))
		return
	}
	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	unit, err := domain.ParseUnitName(chi.URLParam(r, "unit"))
	if err != nil {
		writeError(w, err)
		return
	}

	loaded, err := h.loadProduct.Execute(r.Context(), chi.URLParam(r, "internalPO"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.changeUnitStatus.Execute(r.Context(), &change_unit_status.Request{
		Product: loaded.Product,
		Unit:    unit,
		Status:  status,
		Options: callOptions(r),
	})
	if resp == nil {
		h.fail(w, r, err)
		return
	}

	out := ChangeStatusResponse{
		Product:   toProduct(loaded.Product),
		Receipt:   toReceipt(resp.Receipt),
		Completed: resp.Completed,
		Drift:     resp.Drift,
	}
	if err != nil {
		out.CompletionError = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

// CheckCompletion handles POST /api/v1/products/{internalPO}/completion.
func (h *ProductHandler) CheckCompletion(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.loadProduct.Execute(r.Context(), chi.URLParam(r, "internalPO"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.checkCompletion.Execute(r.Context(), &check_completion.Request{
		Product: loaded.Product,
		Options: callOptions(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CompletionResponse{
		InternalPO: loaded.Product.InternalPO(),
		Completed:  resp.Completed,
		Drift:      resp.Drift,
	})
}

// ListProducts handles GET /api/v1/products?q=&match=&company=&unit=&completed=.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	spec, err := parseSpec(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.listProducts.Execute(r.Context(), &list_products.Request{Spec: spec})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := ListProductsResponse{
		Products:  make([]Product, 0, len(resp.Products)),
		Companies: resp.Companies,
	}
	if out.Companies == nil {
		out.Companies = []string{}
	}
	for _, p := range resp.Products {
		out.Products = append(out.Products, toProduct(p))
	}
	for _, f := range resp.Failures {
		out.Failures = append(out.Failures, ProductFailure{InternalPO: f.InternalPO, Error: f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListCompanies handles GET /api/v1/companies.
func (h *ProductHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listProducts.Execute(r.Context(), &list_products.Request{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	companies := resp.Companies
	if companies == nil {
		companies = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"companies": companies})
}

func parseSpec(r *http.Request) (filter_products.Spec, error) {
	q := r.URL.Query()
	match, err := filter_products.ParseMatchField(q.Get("match"))
	if err != nil {
		return filter_products.Spec{}, err
	}
	spec := filter_products.Spec{
		TextQuery:  q.Get("q"),
		MatchField: match,
		Company:    q.Get("company"),
		UnitType:   q.Get("unit"),
	}
	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter_products.Spec{}, domain.NewLedgerError("ListProducts", domain.KindInvalidInput, "completed must be a boolean", err)
		}
		spec.CompletedOnly = completed
	}
	return spec, nil
}
