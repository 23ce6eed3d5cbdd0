package server

import (
	"net/http"

	"Soundbay/apperr"
	"Soundbay/core/library"

	"github.com/gorilla/mux"
)

// LibraryTracksHandler 已购曲目
func (h *APIHandler) LibraryTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.library.Tracks(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks})
}

// LibraryOrdersHandler 订单历史
func (h *APIHandler) LibraryOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := h.library.Orders(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// ListPlaylistsHandler 用户的歌单
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.library.Playlists(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

// CreatePlaylistHandler 新建歌单
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var in library.PlaylistInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := h.library.CreatePlaylist(r.Context(), CurrentUser(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"playlist": playlist})
}

// RenamePlaylistHandler 重命名歌单
func (h *APIHandler) RenamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var in library.PlaylistInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.library.RenamePlaylist(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"], in); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Playlist updated")
}

// DeletePlaylistHandler 删除歌单
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeletePlaylist(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Playlist removed")
}

// AddPlaylistTrackHandler body: {"trackId": "..."}；只能加入已购曲目
func (h *APIHandler) AddPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.TrackID == "" {
		writeError(w, r, apperr.Validation("trackId is required"))
		return
	}
	if _, err := h.library.AddTrack(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"], req.TrackID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Track added to playlist")
}

// RemovePlaylistTrackHandler 从歌单移除曲目
func (h *APIHandler) RemovePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, err := h.library.RemoveTrack(r.Context(), CurrentUser(r.Context()).ID, vars["id"], vars["trackId"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Track removed from playlist")
}
