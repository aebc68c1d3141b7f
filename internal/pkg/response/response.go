package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// apiError carries the service error code into proxyutil's fail envelope.
type apiError struct {
	code uint32
	msg  string
}

func (e *apiError) Error() string {
	return e.msg
}

func (e *apiError) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error always answers HTTP 200; the envelope's code field carries the
// failure.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, &apiError{code: uint32(code), msg: message})
}
