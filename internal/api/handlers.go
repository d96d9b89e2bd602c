package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Hana-Lee/translate-chat/internal/server"
	"github.com/Hana-Lee/translate-chat/internal/types"
)

const maxUploadBytes = 10 << 20

func (s *TranslateChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *TranslateChatApp) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serveWs upgrades the connection and hands it to the chat server. A
// user_id query reattaches a known user: the session is seeded and the
// stored socket id refreshed, so register does not have to be replayed.
func (s *TranslateChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	var user types.User
	if userId := r.URL.Query().Get("user_id"); userId != "" {
		dbUser, err := s.db.GetUser(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user = types.User{Id: dbUser.Id, UserName: dbUser.UserName}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, conn, s.cs, s.log)
	if user.Id != "" {
		if err := s.db.UpdateSocketId(user.Id, client.Id()); err != nil {
			s.log.Printf("update socket id for %q: %v", user.Id, err)
		}
	}

	s.cs.RegisterChan <- client

	go client.Write()
	go client.Read()
}

type uploadResponse struct {
	Url  string `json:"url"`
	Type string `json:"type"`
}

// uploadImage stores a multipart image and answers with the path the
// client sends as an image message afterwards.
func (s *TranslateChatApp) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		errResp := NewRequestEntityTooLargeError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, uploadResponse{
		Url:  "/uploads/" + name,
		Type: "image",
	})
}
