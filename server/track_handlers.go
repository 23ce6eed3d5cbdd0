package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"Soundbay/apperr"
	"Soundbay/core/seller"
	"Soundbay/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// parseForm 解析 multipart 或 urlencoded 表单
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(32 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid form data", err)
	}
	return nil
}

// formValue 返回字段值；字段不存在时返回 nil
func formValue(r *http.Request, key string) *string {
	vs, ok := r.Form[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func formPrice(r *http.Request) (*decimal.Decimal, error) {
	raw := formValue(r, "price")
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperr.Validation("Price must be a number")
	}
	return &d, nil
}

// formUpload 读取上传文件；未上传时返回 nil。调用方负责调用返回的 close
func formUpload(r *http.Request, field string) (*storage.Upload, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, apperr.Wrap(apperr.KindValidation, "Invalid file "+field, err)
	}
	return toUpload(file, header), func() { file.Close() }, nil
}

func toUpload(file multipart.File, header *multipart.FileHeader) *storage.Upload {
	return &storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// trackFiles 读取 media 与 cover 两个文件
func trackFiles(r *http.Request) (media, cover *storage.Upload, closeAll func(), err error) {
	media, closeMedia, err := formUpload(r, "media")
	if err != nil {
		return nil, nil, func() {}, err
	}
	cover, closeCover, err := formUpload(r, "cover")
	if err != nil {
		closeMedia()
		return nil, nil, func() {}, err
	}
	return media, cover, func() { closeMedia(); closeCover() }, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SellerTracksHandler 卖家的全部曲目
func (h *APIHandler) SellerTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.seller.Tracks(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// SellerDashboardHandler 销售统计
func (h *APIHandler) SellerDashboardHandler(w http.ResponseWriter, r *http.Request) {
	dash, err := h.seller.Dashboard(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// CreateTrackHandler 上传新曲目并提交审核
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	price, err := formPrice(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	form := seller.TrackForm{
		Title:       strings.TrimSpace(deref(formValue(r, "title"))),
		Description: strings.TrimSpace(deref(formValue(r, "description"))),
		AuthorName:  strings.TrimSpace(deref(formValue(r, "authorName"))),
		GenreID:     strings.TrimSpace(deref(formValue(r, "genreId"))),
	}
	if price != nil {
		form.Price = *price
	}

	media, cover, closeFiles, err := trackFiles(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeFiles()

	res, err := h.seller.CreateTrack(r.Context(), CurrentUser(r.Context()).ID, form, media, cover)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":             "Track sent to moderation",
		"trackId":             res.TrackID,
		"moderationRequestId": res.ModerationRequestID,
	})
}

// UpdateTrackHandler 修改曲目，提交审核后生效
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	price, err := formPrice(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch := seller.TrackPatch{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		AuthorName:  formValue(r, "authorName"),
		GenreID:     formValue(r, "genreId"),
		Price:       price,
	}

	media, cover, closeFiles, err := trackFiles(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeFiles()

	res, err := h.seller.UpdateTrack(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"], patch, media, cover)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "Track update sent to moderation",
		"moderationRequestId": res.ModerationRequestID,
	})
}

// DeleteTrackHandler 申请下架
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.seller.DeleteTrack(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "Track deletion request sent to moderation",
		"moderationRequestId": res.ModerationRequestID,
	})
}
