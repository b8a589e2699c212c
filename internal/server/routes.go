// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// RegisterStore registers the store REST routes against the given façade.
func (s *Server) RegisterStore(st *store.Store) {
	h := &storeHandler{store: st}

	huma.Register(s.api, huma.Operation{
		OperationID: "put-item",
		Method:      http.MethodPut,
		Path:        "/v1/store/items",
		Summary:     "Store an item",
		Description: "Stores a JSON value under (namespace, key), replacing any existing value. Indexed for semantic search when indexing is enabled.",
		Tags:        []string{"store"},
	}, h.putItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/v1/store/items",
		Summary:     "Retrieve an item",
		Tags:        []string{"store"},
	}, h.getItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-item",
		Method:      http.MethodDelete,
		Path:        "/v1/store/items",
		Summary:     "Delete an item",
		Description: "Removes an item and its index entry. Deleting an absent item succeeds.",
		Tags:        []string{"store"},
	}, h.deleteItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-items",
		Method:      http.MethodPost,
		Path:        "/v1/store/items/search",
		Summary:     "Search items",
		Description: "Lists items under a namespace prefix, ranked by semantic similarity when a query is given and indexing is enabled.",
		Tags:        []string{"store"},
	}, h.searchItems)
}

type storeHandler struct {
	store *store.Store
}

// --- Request/Response types for huma ---

// ItemPayload is the wire form of a stored item.
type ItemPayload struct {
	Namespace string         `json:"namespace" example:"users.alice.prefs" doc:"Dotted namespace path"`
	Key       string         `json:"key" example:"theme" doc:"Item key"`
	Value     map[string]any `json:"value" doc:"Stored JSON object"`
	CreatedAt time.Time      `json:"created_at" doc:"First write time (UTC)"`
	UpdatedAt time.Time      `json:"updated_at" doc:"Last write time (UTC)"`
}

type putItemInput struct {
	Body struct {
		Namespace string         `json:"namespace,omitempty" doc:"Dotted namespace path; empty defaults to users.<principal>"`
		Key       string         `json:"key" minLength:"1" doc:"Item key"`
		Value     map[string]any `json:"value" doc:"JSON object to store"`
	}
}
type putItemOutput struct {
	Body struct {
		Status string `json:"status" example:"stored"`
	}
}

type getItemInput struct {
	Key       string `query:"key" required:"true" doc:"Item key"`
	Namespace string `query:"namespace" doc:"Dotted namespace path; empty defaults to users.<principal>"`
}
type getItemOutput struct {
	Body ItemPayload
}

type deleteItemInput struct {
	Body struct {
		Namespace string `json:"namespace,omitempty" doc:"Dotted namespace path; empty defaults to users.<principal>"`
		Key       string `json:"key" minLength:"1" doc:"Item key"`
	}
}
type deleteItemOutput struct {
	Body struct {
		Status string `json:"status" example:"deleted"`
	}
}

type searchItemsInput struct {
	Body struct {
		NamespacePrefix string `json:"namespace_prefix,omitempty" doc:"Dotted namespace prefix; empty defaults to users.<principal>"`
		Query           string `json:"query,omitempty" doc:"Natural-language query; empty lists lexically"`
		Limit           int    `json:"limit,omitempty" minimum:"0" maximum:"100" doc:"Page size, default 20"`
		Offset          int    `json:"offset,omitempty" minimum:"0" doc:"Items to skip"`
	}
}
type searchItemsOutput struct {
	Body struct {
		Items  []ItemPayload `json:"items"`
		Total  int64         `json:"total" doc:"Exact count for lexical listing; ranked candidate count for semantic search"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}
}

// --- Handlers ---

func (h *storeHandler) putItem(ctx context.Context, input *putItemInput) (*putItemOutput, error) {
	ns, err := scopeNamespace(ctx, input.Body.Namespace)
	if err != nil {
		return nil, storeError(err)
	}

	if err := h.store.PutItem(ctx, ns, input.Body.Key, input.Body.Value); err != nil {
		return nil, storeError(err)
	}

	out := &putItemOutput{}
	out.Body.Status = "stored"
	return out, nil
}

func (h *storeHandler) getItem(ctx context.Context, input *getItemInput) (*getItemOutput, error) {
	ns, err := scopeNamespace(ctx, input.Namespace)
	if err != nil {
		return nil, storeError(err)
	}

	item, err := h.store.GetItem(ctx, ns, input.Key)
	if err != nil {
		return nil, storeError(err)
	}

	return &getItemOutput{Body: itemPayload(item)}, nil
}

func (h *storeHandler) deleteItem(ctx context.Context, input *deleteItemInput) (*deleteItemOutput, error) {
	ns, err := scopeNamespace(ctx, input.Body.Namespace)
	if err != nil {
		return nil, storeError(err)
	}

	if err := h.store.DeleteItem(ctx, ns, input.Body.Key); err != nil {
		return nil, storeError(err)
	}

	out := &deleteItemOutput{}
	out.Body.Status = "deleted"
	return out, nil
}

func (h *storeHandler) searchItems(ctx context.Context, input *searchItemsInput) (*searchItemsOutput, error) {
	prefix, err := scopeNamespace(ctx, input.Body.NamespacePrefix)
	if err != nil {
		return nil, storeError(err)
	}

	opts := store.SearchOpts{Limit: input.Body.Limit, Offset: input.Body.Offset}
	items, total, err := h.store.SearchItems(ctx, prefix, input.Body.Query, opts)
	if err != nil {
		return nil, storeError(err)
	}

	out := &searchItemsOutput{}
	out.Body.Items = make([]ItemPayload, len(items))
	for i, item := range items {
		out.Body.Items[i] = itemPayload(item)
	}
	out.Body.Total = total
	out.Body.Limit = input.Body.Limit
	if out.Body.Limit == 0 {
		out.Body.Limit = store.DefaultSearchLimit
	}
	out.Body.Offset = input.Body.Offset
	return out, nil
}

// scopeNamespace resolves the effective namespace for a request. An empty
// namespace defaults to users.<principal>; the façade itself never infers
// identity.
func scopeNamespace(ctx context.Context, raw string) (store.Namespace, error) {
	if strings.TrimSpace(raw) == "" {
		principal := PrincipalFromContext(ctx)
		if principal == "" {
			return nil, cairnerr.New(cairnerr.CodeServerAuthUnauthorized, "no principal on request")
		}
		return store.Namespace{"users", principal}, nil
	}
	return store.ParseNamespaceString(raw)
}

func itemPayload(item *store.Item) ItemPayload {
	return ItemPayload{
		Namespace: item.Namespace.String(),
		Key:       item.Key,
		Value:     item.Value,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// storeError maps a store/embedding error to the huma status model:
// not-found 404, validation 400, unauthorized 401, provider failure 502,
// timeout 504, storage 500.
func storeError(err error) error {
	return huma.NewError(cairnerr.HTTPStatus(err), err.Error())
}
