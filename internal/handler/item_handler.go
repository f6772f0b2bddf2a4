package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

// multipart butuh ruang untuk boundary dan header selain isi file
const uploadOverhead = 512 * 1024

type ItemHandler struct {
	svc service.ItemService
}

func NewItemHandler(svc service.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// GetAll retrieves the inventory with pagination
// @Summary      Daftar alat
// @Description  Seluruh inventaris diurutkan berdasarkan nama
// @Tags         items
// @Produce      json
// @Param        search    query  string  false  "Cari berdasarkan nama"
// @Param        kategori  query  string  false  "Filter kategori"
// @Param        page      query  int     false  "Halaman (default 1)"
// @Param        per_page  query  int     false  "Jumlah per halaman (default 20)"
// @Security     BearerAuth
// @Success      200  {object}  response.PaginatedResponse
// @Failure      500  {object}  response.Response
// @Router       /items [get]
func (h *ItemHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ItemFilter{
		Search:   q.Get("search"),
		Kategori: q.Get("kategori"),
		Page:     parseIntQuery(q.Get("page"), 1),
		PerPage:  parseIntQuery(q.Get("per_page"), 20),
	}

	items, pagination, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, "Gagal mengambil data alat")
		return
	}
	response.Paginated(w, "Data alat berhasil diambil", items, pagination)
}

// Catalog lists tools a borrower can request
// @Summary      Katalog peminjam
// @Description  Alat dengan stok > 0 dan status aman atau hampir habis
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /items/catalog [get]
func (h *ItemHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Catalog(r.Context())
	if err != nil {
		respondError(w, r, err, "Gagal mengambil katalog alat")
		return
	}
	response.Success(w, "Katalog alat berhasil diambil", items)
}

// GetByID godoc
// @Summary      Detail alat
// @Tags         items
// @Produce      json
// @Param        id   path  string  true  "Item ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /items/{id} [get]
func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, "Gagal mengambil data alat")
		return
	}
	response.Success(w, "Data alat berhasil diambil", item)
}

// Create godoc
// @Summary      Tambah alat
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        body  body  model.ItemRequest  true  "Data alat"
// @Security     BearerAuth
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /items [post]
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	item, err := h.svc.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Gagal menambahkan alat")
		return
	}
	response.Created(w, "Alat berhasil ditambahkan", item)
}

// Update godoc
// @Summary      Ubah alat
// @Description  Mengganti seluruh data alat. gambar_url yang tidak dikirim mempertahankan gambar lama.
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Item ID"
// @Param        body  body  model.ItemRequest  true  "Data alat"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /items/{id} [put]
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.ItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	item, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err, "Gagal mengubah alat")
		return
	}
	response.Success(w, "Alat berhasil diperbarui", item)
}

// Delete godoc
// @Summary      Hapus alat
// @Description  Ditolak selama masih ada peminjaman pending atau belum dikembalikan
// @Tags         items
// @Produce      json
// @Param        id   path  string  true  "Item ID"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /items/{id} [delete]
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, "Gagal menghapus alat")
		return
	}
	response.Success(w, "Alat berhasil dihapus", nil)
}

// UploadImage uploads or replaces the tool picture
// @Summary      Upload gambar alat
// @Description  JPG, PNG, GIF atau WEBP, maksimal 5MB
// @Tags         items
// @Accept       multipart/form-data
// @Produce      json
// @Param        id      path      string  true  "Item ID"
// @Param        gambar  formData  file    true  "File gambar"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /items/{id}/image [post]
func (h *ItemHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, utils.MaxImageSize+uploadOverhead)
	if err := r.ParseMultipartForm(utils.MaxImageSize + uploadOverhead); err != nil {
		response.BadRequest(w, service.ErrImageTooLarge.Message, nil)
		return
	}

	file, header, err := r.FormFile("gambar")
	if err != nil {
		response.BadRequest(w, "File gambar tidak ditemukan dalam request", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(w, "Gagal membaca file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	item, err := h.svc.UploadImage(r.Context(), chi.URLParam(r, "id"), header.Filename, data, contentType)
	if err != nil {
		respondError(w, r, err, "Gagal mengupload gambar")
		return
	}
	response.Success(w, "Gambar berhasil diupload", item)
}

// AdjustStock godoc
// @Summary      Koreksi stok
// @Description  Menambah atau mengurangi stok; ditolak jika hasilnya negatif
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "Item ID"
// @Param        body  body  model.StockAdjustRequest  true  "Perubahan stok"
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /items/{id}/stock [patch]
func (h *ItemHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req model.StockAdjustRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Format request tidak valid", err.Error())
		return
	}

	item, err := h.svc.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		respondError(w, r, err, "Gagal mengubah stok")
		return
	}
	response.Success(w, "Stok berhasil diperbarui", item)
}
