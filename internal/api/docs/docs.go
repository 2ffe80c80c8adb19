// Package docs serves the OpenAPI description of the service and a Swagger UI for it.
package docs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"gopkg.in/yaml.v3"
)

//go:embed swagger.yaml
var swaggerYAML []byte

// Load returns the embedded OpenAPI document encoded as JSON.
func Load() ([]byte, error) {
	return FromYAML(swaggerYAML)
}

// FromYAML converts an OpenAPI document from YAML to JSON.
func FromYAML(doc []byte) ([]byte, error) {
	var raw interface{}
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to parse openapi document: empty document")
	}

	out, err := json.Marshal(normalize(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to encode openapi document: %w", err)
	}
	return out, nil
}

// Mount serves spec at <path>/doc.json and the Swagger UI under <path>/.
// A request for <path> itself is redirected to the UI.
func Mount(r chi.Router, path string, spec []byte) {
	path = strings.TrimSuffix(path, "/")

	if path != "" {
		r.Get(path, http.RedirectHandler(path+"/index.html", http.StatusMovedPermanently).ServeHTTP)
	}
	r.Get(path+"/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(spec)
	})
	r.Get(path+"/*", httpSwagger.Handler(httpSwagger.URL(path+"/doc.json")))
}

// normalize turns the map[interface{}]interface{} values yaml produces for
// non-string keys into JSON encodable maps.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []interface{}:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}
