package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/barcode"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// ProductsHandler handles the product catalog and product photos.
type ProductsHandler struct {
	DB *sql.DB
}

type productRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Manufacturer string `json:"manufacturer" validate:"max=200"`
	Model        string `json:"model" validate:"max=200"`
	Category     string `json:"category" validate:"max=100"`
	UPC          string `json:"upc" validate:"max=32"`
	IsConsumable bool   `json:"is_consumable"`
	Active       *bool  `json:"active"`
}

// List handles GET /api/products. Inactive products are included with
// all=true.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	products, err := store.ListProducts(r.Context(), h.DB, activeOnly)
	if err != nil {
		slog.Error("failed to list products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Create handles POST /api/products. The UPC is stored normalized.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	p := model.Product{
		Name:         strings.TrimSpace(req.Name),
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		Category:     req.Category,
		IsConsumable: req.IsConsumable,
		Active:       req.Active == nil || *req.Active,
	}

	var warning string
	if req.UPC != "" {
		upc, err := barcode.NormalizeUPC(req.UPC)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid upc")
			return
		}
		p.UPC = upc.Code
		warning = upc.Warning()
	}

	product, err := store.CreateProduct(r.Context(), h.DB, p, time.Now())
	if err != nil {
		jsonError(w, http.StatusConflict, "upc already in use")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product created", "user", claims.Username, "product", product.Name, "upc", product.UPC)
	if warning != "" {
		w.Header().Set("Warning", fmt.Sprintf("199 - %q", warning))
	}
	jsonResponse(w, http.StatusCreated, product)
}

// Get handles GET /api/products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "product")
	if !ok {
		return
	}

	product, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Update handles PUT /api/products/{id}. The UPC cannot be changed.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "product")
	if !ok {
		return
	}

	var req productRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	product, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	if req.UPC != "" {
		if upc, err := barcode.NormalizeUPC(req.UPC); err != nil || upc.Code != product.UPC {
			jsonError(w, http.StatusBadRequest, "upc cannot be changed")
			return
		}
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Manufacturer = req.Manufacturer
	product.Model = req.Model
	product.Category = req.Category
	product.IsConsumable = req.IsConsumable
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := store.UpdateProduct(r.Context(), h.DB, *product, time.Now()); err != nil {
		slog.Error("failed to update product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	updated, _ := store.GetProduct(r.Context(), h.DB, id)
	claims := GetClaims(r.Context())
	slog.Info("product updated", "user", claims.Username, "product", product.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/products/{id}. Products with items can only be
// deactivated.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "product")
	if !ok {
		return
	}

	product, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := store.DeleteProduct(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product deleted", "user", claims.Username, "product", product.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// UploadPhoto handles PUT /api/products/{id}/photo. The photo is
// downscaled and stored as JPEG.
func (h *ProductsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "product")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxPhotoBytes)

	if err := r.ParseMultipartForm(imaging.MaxPhotoBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	product, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil || product == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	photo, err := imaging.ProcessPhoto(file)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
		return
	}
	if err != nil {
		slog.Error("failed to process photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to process image")
		return
	}

	if err := store.SetProductImage(r.Context(), h.DB, id, photo.Data, photo.MIME, time.Now()); err != nil {
		slog.Error("failed to save photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product photo uploaded", "user", claims.Username, "product", product.Name, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetPhoto handles GET /api/products/{id}/photo.
func (h *ProductsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "product")
	if !ok {
		return
	}

	data, mime, err := store.GetProductImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
