package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"styleforge/internal/domain"
	"styleforge/internal/lineage"
	pkgzip "styleforge/pkg/zip"
)

type createGenerationRequest struct {
	StyleID   string  `json:"style_id"`
	Prompt    string  `json:"prompt"`
	ProjectID *string `json:"project_id,omitempty"`
	ParentID  *string `json:"parent_id,omitempty"`
	Count     int     `json:"count,omitempty"`
}

// CreateGeneration validates the request, enqueues a generation job and
// returns the job handle. The request path never blocks on provider calls.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req createGenerationRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if strings.TrimSpace(req.StyleID) == "" || strings.TrimSpace(req.Prompt) == "" {
		a.fail(w, fmt.Errorf("%w: style_id and prompt are required", domain.ErrValidation))
		return
	}
	// zero means "use the default count" downstream
	if req.Count < 0 || req.Count > 10 {
		a.fail(w, fmt.Errorf("%w: count must be between 0 and 10", domain.ErrValidation))
		return
	}
	if _, err := a.Styles.GetByID(r.Context(), req.StyleID); err != nil {
		a.fail(w, err)
		return
	}
	payload := domain.GenerationPayload{
		Kind:       domain.GenerationKindGenerate,
		StyleID:    req.StyleID,
		UserPrompt: strings.TrimSpace(req.Prompt),
		ProjectID:  req.ProjectID,
		ParentID:   req.ParentID,
		Count:      req.Count,
	}
	jobID, err := a.Jobs.Enqueue(r.Context(), domain.QueueGeneration, payload)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

type createEditsRequest struct {
	Description     string   `json:"description"`
	PreserveAspects []string `json:"preserve_aspects,omitempty"`
}

// CreateEdits enqueues an edit-variants job for the generation.
func (a *App) CreateEdits(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "id")
	var req createEditsRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		a.fail(w, fmt.Errorf("%w: description is required", domain.ErrValidation))
		return
	}
	parent, err := a.Generations.GetByID(r.Context(), parentID)
	if err != nil {
		a.fail(w, err)
		return
	}
	payload := domain.GenerationPayload{
		Kind:            domain.GenerationKindEditVariants,
		StyleID:         parent.StyleID,
		ParentID:        &parent.ID,
		EditDescription: strings.TrimSpace(req.Description),
		PreserveAspects: req.PreserveAspects,
	}
	jobID, err := a.Jobs.Enqueue(r.Context(), domain.QueueGeneration, payload)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

type postprocessRequest struct {
	Op string `json:"op"`
}

// CreatePostprocess enqueues background removal or vectorization for the
// generation.
func (a *App) CreatePostprocess(w http.ResponseWriter, r *http.Request) {
	genID := chi.URLParam(r, "id")
	var req postprocessRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	op := domain.PostprocessOp(strings.TrimSpace(req.Op))
	if op != domain.PostprocessRemoveBackground && op != domain.PostprocessVectorize {
		a.fail(w, fmt.Errorf("%w: op must be remove_background or vectorize", domain.ErrValidation))
		return
	}
	if _, err := a.Generations.GetByID(r.Context(), genID); err != nil {
		a.fail(w, err)
		return
	}
	jobID, err := a.Jobs.Enqueue(r.Context(), domain.QueuePostprocess, domain.PostprocessPayload{GenerationID: genID, Op: op})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// GetGeneration returns one generation.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	gen, err := a.Generations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, gen)
}

// GetGenerationTree returns the generation and all of its descendants.
func (a *App) GetGenerationTree(w http.ResponseWriter, r *http.Request) {
	tree, err := lineage.Tree(r.Context(), a.Generations, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, tree)
}

// DownloadGeneration streams the mirrored asset bytes for a generation.
func (a *App) DownloadGeneration(w http.ResponseWriter, r *http.Request) {
	gen, err := a.Generations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	key, _ := gen.Metadata["storage_key"].(string)
	if key == "" || a.Store == nil {
		a.fail(w, fmt.Errorf("%w: generation has no mirrored asset", domain.ErrNotFound))
		return
	}
	data, err := a.Store.Read(r.Context(), key)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", gen.ID+".png"))
	_, _ = w.Write(data)
}

// DownloadStyleBundle zips the style's accepted generations' mirrored assets.
func (a *App) DownloadStyleBundle(w http.ResponseWriter, r *http.Request) {
	styleID := chi.URLParam(r, "id")
	if _, err := a.Styles.GetByID(r.Context(), styleID); err != nil {
		a.fail(w, err)
		return
	}
	gens, err := a.Generations.ListAcceptedByStyle(r.Context(), styleID, 50)
	if err != nil {
		a.fail(w, err)
		return
	}
	var assets []pkgzip.Asset
	for _, gen := range gens {
		key, _ := gen.Metadata["storage_key"].(string)
		if key == "" || a.Store == nil {
			continue
		}
		data, err := a.Store.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("generation_id", gen.ID).Msg("http: bundle asset read failed, skipping")
			continue
		}
		assets = append(assets, pkgzip.Asset{Filename: gen.ID + ".png", MIME: "image/png", Data: data})
	}
	if len(assets) == 0 {
		a.fail(w, fmt.Errorf("%w: no mirrored accepted generations", domain.ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "style-"+styleID+".zip"))
	_, _ = w.Write(pkgzip.ArchiveAssets(assets))
}
