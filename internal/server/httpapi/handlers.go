package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/server/services"
	"github.com/dmitrijs2005/travelkeeper/internal/validation"
	"github.com/gorilla/mux"
)

// bind decodes and validates a JSON body, writing the 422 itself on failure.
func (a *API) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		a.writeError(w, r, err)
		return false
	}
	if fields := validation.Struct(dst); len(fields) > 0 {
		writeValidation(w, fields)
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		return 0, common.NewValidationError("id", "Input should be a valid integer")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, common.NewValidationError(key, "Input should be a valid integer")
	}
	return n, nil
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !a.bind(w, r, &req) {
		return
	}

	view, err := a.sessions.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{ID: view.ID, Email: view.Email})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !a.bind(w, r, &req) {
		return
	}

	pair, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.bind(w, r, &req) {
		return
	}

	access, err := a.sessions.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: access})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	msg, err := a.sessions.Logout(r.Context(), accountID(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	view, err := a.sessions.GetAccount(r.Context(), accountID(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{ID: view.ID, Email: view.Email})
}

func (a *API) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.DeleteAccount(r.Context(), accountID(r.Context())); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !a.bind(w, r, &req) {
		return
	}

	in, err := req.input()
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	project, err := a.projects.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", services.DefaultListLimit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	list, err := a.projects.List(r.Context(), skip, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	out := make([]projectResponse, len(list))
	for i, p := range list {
		out[i] = toProjectResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	project, err := a.projects.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	fields, err := decodePatch(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	patch, err := projectPatchFrom(fields)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	project, err := a.projects.Update(r.Context(), id, patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (a *API) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.projects.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addPlace(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req placeRequest
	if !a.bind(w, r, &req) {
		return
	}

	place, err := a.places.Add(r.Context(), projectID, req.input())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaceResponse(*place))
}

func (a *API) listPlaces(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	list, err := a.places.ListForProject(r.Context(), projectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaceResponses(list))
}

func (a *API) getPlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	place, err := a.places.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaceResponse(*place))
}

func (a *API) updatePlace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	fields, err := decodePatch(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	patch, err := placePatchFrom(fields)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	place, err := a.places.Update(r.Context(), id, patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaceResponse(*place))
}
