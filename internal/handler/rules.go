package handler

import (
	"net/http"

	"github.com/paiban/callrota/internal/constraints"
	"github.com/paiban/callrota/pkg/model"
)

// ListRules 规则目录；?classification= 只返回指定分组
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if c := r.URL.Query().Get("classification"); c != "" {
		catalog, err := constraints.Catalog(model.Classification(c))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, []*constraints.PolicyCatalog{catalog})
		return
	}

	library, err := constraints.GetLibrary()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, library)
}
