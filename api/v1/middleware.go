package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

func MiddlewareResolutionValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := &addBody{}
		if err := decodeJSONStrict(w, r, body, 1<<20); err != nil {
			markErr(w, err)
			if errors.Is(err, ErrContentType) {
				http.Error(w, ErrContentType.Error(), http.StatusUnsupportedMediaType)
				return
			}
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(body.ConsumerID) == "" {
			markErr(w, ErrConsumerID)
			http.Error(w, ErrConsumerID.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Source.URI) == "" {
			markErr(w, ErrSourceURI)
			http.Error(w, ErrSourceURI.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAdd{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func MiddlewarePatchDesired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body patchBody
		if err := decodeJSONStrict(w, r, &body, 1<<20); err != nil {
			markErr(w, err)
			if errors.Is(err, ErrContentType) {
				http.Error(w, ErrContentType.Error(), http.StatusUnsupportedMediaType)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if body.DesiredStatus == "" {
			markErr(w, ErrDesiredStatusJSON)
			http.Error(w, ErrDesiredStatusJSON.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPatch{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
