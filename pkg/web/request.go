package web

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/atmquant/atmquant/pkg/web/errors"
)

// BindAndValidate 绑定请求参数并进行校验，失败时已写入 400 响应
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		var errs validator.ValidationErrors
		if stderrors.As(err, &errs) {
			Error(c, errors.CodeInvalidParams, errs.Error())
			return false
		}
		Error(c, errors.CodeInvalidParams, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}
