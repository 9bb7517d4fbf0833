package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"visittrack/internal/storage"
)

var uploadKeyUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// buildUploadKey namespaces objects by upload type and prefixes a timestamp
// so repeated uploads of the same filename never collide.
func buildUploadKey(uploadType, filename string, at time.Time) string {
	safe := uploadKeyUnsafe.ReplaceAllString(filename, "_")
	return fmt.Sprintf("%s/%d_%s", uploadType, at.UnixMilli(), safe)
}

// PresignUpload hands the client a short-lived PUT URL so files go straight
// to the object store instead of through the API.
func PresignUpload(store storage.ObjectStore, validity time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /uploads/presign"
		defer handlePanic(c, route)

		uploadType := c.Query("type")
		filename := c.Query("filename")
		if uploadType == "" || filename == "" {
			respondWithError(c, http.StatusBadRequest, route, "type and filename are required")
			return
		}
		if store == nil {
			respondWithError(c, http.StatusBadRequest, route, "File storage is not configured")
			return
		}

		contentType := c.Query("contentType")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		acl := c.Query("acl")
		if acl == "" {
			acl = "private"
		}

		key := buildUploadKey(uploadType, filename, time.Now())

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		url, err := store.PresignUpload(ctx, key, contentType, acl, validity)
		if err != nil {
			log.Println("[UPLOAD] [ERROR] presign failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "Failed to generate upload URL")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data": gin.H{
				"url":         url,
				"key":         key,
				"provider":    store.Provider(),
				"contentType": contentType,
				"acl":         acl,
			},
		})
	}
}

// ProxyFile streams a stored object back to the client, carrying over the
// store's metadata headers so browsers can cache the result.
func ProxyFile(store storage.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /uploads/proxy"
		defer handlePanic(c, route)

		key := c.Query("key")
		if key == "" {
			respondWithError(c, http.StatusBadRequest, route, "key is required")
			return
		}
		if store == nil {
			respondWithError(c, http.StatusBadRequest, route, "File storage is not configured")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		obj, err := store.Get(ctx, key)
		if err != nil {
			log.Println("[UPLOAD] [ERROR] proxy read failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "Failed to load file")
			return
		}

		extraHeaders := map[string]string{
			"Cross-Origin-Resource-Policy": "cross-origin",
			"Cache-Control":                "public, max-age=3600",
		}
		if !obj.LastModified.IsZero() {
			extraHeaders["Last-Modified"] = obj.LastModified.UTC().Format(http.TimeFormat)
		}
		if obj.ETag != "" {
			extraHeaders["ETag"] = obj.ETag
		}

		contentType := obj.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		c.DataFromReader(http.StatusOK, obj.ContentLength, contentType, obj.Body, extraHeaders)
	}
}
