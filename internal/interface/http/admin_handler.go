package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/pkg/response"
)

// AdminHandler exposes user, role and profile administration.
type AdminHandler struct {
	Svc    *application.AdminService
	Logger *logrus.Logger
}

func NewAdminHandler(svc *application.AdminService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	f := entity.UserFilter{
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		IsActive: queryBool(c, "is_active"),
		Limit:    limit,
		Offset:   offset,
	}
	users, total, err := h.Svc.ListUsers(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTOs(users), "users", response.Pagination{Total: total, Limit: limit, Offset: offset})
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req application.AdminUserInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserDTO(u), "user created", nil)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.Svc.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "user", nil)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.AdminUserInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "user updated", nil)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteUser(c.Request.Context(), id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" binding:"required"`
}

func (h *AdminHandler) AssignRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.AssignRole(c.Request.Context(), id, req.RoleID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "role assigned", nil)
}

func (h *AdminHandler) UnassignRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	roleID, ok := pathID(c, "role_id")
	if !ok {
		return
	}
	if err := h.Svc.UnassignRole(c.Request.Context(), id, roleID); err != nil {
		h.notFound(c, err, application.ErrRoleNotFound, "Role not assigned to user.")
		return
	}
	response.NoContent(c)
}

// notFound answers 404 when err is target and falls back to writeError otherwise.
func (h *AdminHandler) notFound(c *gin.Context, err, target error, msg string) {
	if errors.Is(err, target) {
		response.Error[any](c, http.StatusNotFound, msg, nil)
		return
	}
	writeError(c, h.Logger, err)
}

type bulkCreateRequest struct {
	Users []application.AdminUserInput `json:"users" binding:"required,min=1,dive"`
}

type bulkUpdateRequest struct {
	Users []application.AdminUserPatch `json:"users" binding:"required,min=1,dive"`
}

type idsRequest struct {
	UserIDs []int64 `json:"user_ids" binding:"required,min=1"`
}

type bulkResult struct {
	Users  []userDTO               `json:"users"`
	Errors []application.BulkError `json:"errors,omitempty"`
}

func (h *AdminHandler) BulkCreateUsers(c *gin.Context) {
	var req bulkCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	created, failed := h.Svc.BulkCreateUsers(c.Request.Context(), req.Users)
	response.Success(c, http.StatusCreated, bulkResult{Users: toUserDTOs(created), Errors: failed}, "users created", nil)
}

func (h *AdminHandler) BulkUpdateUsers(c *gin.Context) {
	var req bulkUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, failed := h.Svc.BulkUpdateUsers(c.Request.Context(), req.Users)
	response.Success(c, http.StatusOK, bulkResult{Users: toUserDTOs(updated), Errors: failed}, "users updated", nil)
}

func (h *AdminHandler) BulkDeleteUsers(c *gin.Context) {
	var req idsRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.Svc.BulkDeleteUsers(c.Request.Context(), req.UserIDs); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.Svc.ListRoles(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toRoleDTOs(roles), "roles", nil)
}

type roleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	var name, desc string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		desc = *req.Description
	}
	r, err := h.Svc.CreateRole(c.Request.Context(), name, desc)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toRoleDTO(*r), "role created", nil)
}

func (h *AdminHandler) GetRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Svc.GetRole(c.Request.Context(), id)
	if err != nil {
		h.notFound(c, err, application.ErrRoleNotFound, "Role not found.")
		return
	}
	response.Success(c, http.StatusOK, toRoleDTO(*r), "role", nil)
}

func (h *AdminHandler) UpdateRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Svc.UpdateRole(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		h.notFound(c, err, application.ErrRoleNotFound, "Role not found.")
		return
	}
	response.Success(c, http.StatusOK, toRoleDTO(*r), "role updated", nil)
}

func (h *AdminHandler) DeleteRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteRole(c.Request.Context(), id); err != nil {
		h.notFound(c, err, application.ErrRoleNotFound, "Role not found.")
		return
	}
	response.NoContent(c)
}

// profileIDs reads user_ids from the query string and answers 400 when it is missing or malformed.
func profileIDs(c *gin.Context) ([]int64, bool) {
	raw := strings.TrimSpace(c.Query("user_ids"))
	ids, ok := parseIDList(raw)
	if raw == "" || !ok || len(ids) == 0 {
		response.Error[any](c, http.StatusBadRequest, "user_ids query parameter is required.", map[string]string{"user_ids": "must be a comma-separated list of ids"})
		return nil, false
	}
	return ids, true
}

func (h *AdminHandler) GetProfiles(c *gin.Context) {
	ids, ok := profileIDs(c)
	if !ok {
		return
	}
	ps, err := h.Svc.GetProfiles(c.Request.Context(), ids)
	if err != nil {
		h.notFound(c, err, application.ErrProfileNotFound, "No profiles found.")
		return
	}
	response.Success(c, http.StatusOK, toProfileDTOs(ps), "profiles", nil)
}

type bulkProfilesRequest struct {
	Profiles []application.ProfilePatchItem `json:"profiles" binding:"required,min=1"`
}

func (h *AdminHandler) UpdateProfiles(c *gin.Context) {
	var req bulkProfilesRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, failed := h.Svc.UpdateProfiles(c.Request.Context(), req.Profiles)
	response.Success(c, http.StatusOK, gin.H{
		"updated_profiles": toProfileDTOs(updated),
		"errors":           failed,
	}, "profiles updated", nil)
}

func (h *AdminHandler) DeleteProfiles(c *gin.Context) {
	ids, ok := profileIDs(c)
	if !ok {
		return
	}
	if _, err := h.Svc.DeleteProfiles(c.Request.Context(), ids); err != nil {
		h.notFound(c, err, application.ErrProfileNotFound, "No profiles found.")
		return
	}
	response.NoContent(c)
}

func (h *AdminHandler) SearchUsers(c *gin.Context) {
	hits, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), queryInt(c, "size", 20))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}
