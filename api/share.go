package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ShareRequest struct {
	RoomID   string `json:"roomId"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// ShareHandler presigns an upload slot so a client can publish a rendered
// snapshot image and hand the link around. The object never touches this
// process.
func ShareHandler(client *s3.PresignClient, bucket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		userID, err := RequireUserID(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if r.Method != http.MethodPost {
			http.Error(w, "Use POST", http.StatusMethodNotAllowed)
			return
		}

		var req ShareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.RoomID == "" {
			http.Error(w, "roomId required", http.StatusBadRequest)
			return
		}

		if !strings.HasPrefix(req.MimeType, "image/") {
			http.Error(w, "images only", http.StatusForbidden)
			return
		}
		if req.Size > 10*1024*1024 {
			http.Error(w, "image too large", http.StatusForbidden)
			return
		}

		objectKey := fmt.Sprintf("rooms/%s/%s-%d", req.RoomID, userID, time.Now().UnixNano())

		presignedReq, err := client.PresignPutObject(r.Context(), &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(objectKey),
			ContentType: aws.String(req.MimeType),
		}, func(po *s3.PresignOptions) {
			po.Expires = 15 * time.Minute
		})
		if err != nil {
			http.Error(w, "signed fail", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"upload_url": presignedReq.URL,
			"key":        objectKey,
		})
	}
}

// SharedObjectHandler presigns a time-limited download for a published
// snapshot.
func SharedObjectHandler(client *s3.PresignClient, bucket string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		objectKey := r.URL.Query().Get("key")
		if objectKey == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}

		presignedReq, err := client.PresignGetObject(r.Context(), &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(objectKey),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = 1 * time.Hour
		})
		if err != nil {
			http.Error(w, "Failed to sign URL", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"download_url": presignedReq.URL,
		})
	}
}
