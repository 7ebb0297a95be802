package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/pkg/response"
)

func GetMacros(c *gin.Context) {
	entries, err := sessions.Macros().List()
	if err != nil {
		response.InternalServerError(c, "failed to list macros: "+err.Error())
		return
	}
	response.Success(c, gin.H{"macros": entries})
}

func GetMacro(c *gin.Context) {
	macro, err := sessions.Macros().Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrMacroNotFound) {
			response.NotFound(c, "macro not found")
			return
		}
		response.InternalServerError(c, "failed to load macro: "+err.Error())
		return
	}
	response.Success(c, macro)
}

func DeleteMacro(c *gin.Context) {
	if err := sessions.Macros().Delete(c.Param("id")); err != nil {
		if errors.Is(err, models.ErrMacroNotFound) {
			response.NotFound(c, "macro not found")
			return
		}
		response.InternalServerError(c, "failed to delete macro: "+err.Error())
		return
	}
	response.SuccessWithMessage(c, "macro deleted", nil)
}
