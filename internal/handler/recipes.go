package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type recipeResponse struct {
	Recipe string `json:"recipe"`
	productListResponse
}

// RecipeHandler handles recipe lookups.
type RecipeHandler struct {
	catalog CatalogServicer
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(catalog CatalogServicer) *RecipeHandler {
	return &RecipeHandler{catalog: catalog}
}

// RegisterRoutes registers recipe endpoints. Expected to be mounted at /recipes.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{name}/ingredients", h.Ingredients)
}

// Ingredients handles GET /recipes/{name}/ingredients.
func (h *RecipeHandler) Ingredients(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	products, err := h.catalog.RecipeIngredients(name)
	if err != nil {
		writeServiceError(w, "recipe ingredients", err)
		return
	}

	writeJSON(w, http.StatusOK, recipeResponse{Recipe: name, productListResponse: toProductList(products)})
}
