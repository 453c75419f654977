package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ssaemtalk/server/utils"
)

// bindJSON decodes the body into out. Failures are rendered as VALIDATION_ERROR.
func bindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		utils.Fail(ctx, utils.BadRequest(bindMessage(err)))
		return false
	}
	return true
}

// bindQuery decodes the query string into out.
func bindQuery(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindQuery(out); err != nil {
		utils.Fail(ctx, utils.BadRequest(bindMessage(err)))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+"("+fe.Tag()+")")
		}
		return "입력값이 올바르지 않습니다: " + strings.Join(fields, ", ")
	}
	return "요청 형식이 올바르지 않습니다."
}

// paramID parses a positive numeric path parameter.
func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Fail(ctx, utils.BadRequest("잘못된 "+name+" 입니다."))
		return 0, false
	}
	return uint(id), true
}
