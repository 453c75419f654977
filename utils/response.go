package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ssaemtalk/server/config"
)

// ErrorBody is the error part of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, body JSONResponse) {
	ctx.JSON(status, body)
}

// Success returns a 200 envelope carrying data.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, JSONResponse{Success: true, Data: data})
}

// Created returns a 201 envelope carrying data.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, JSONResponse{Success: true, Data: data})
}

// Message returns a 200 envelope with only a message.
func Message(ctx *gin.Context, message string) {
	Respond(ctx, http.StatusOK, JSONResponse{Success: true, Message: message})
}

// Error writes an error envelope.
func Error(ctx *gin.Context, status int, code, message string) {
	Respond(ctx, status, JSONResponse{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// Fail renders err. Internal errors are logged with the request path and,
// in production, reported with a generic message only.
func Fail(ctx *gin.Context, err error) {
	appErr := AsAppError(err)
	msg := appErr.Message
	if appErr.Status >= http.StatusInternalServerError {
		Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(appErr),
		)
		if !config.Get().IsProduction() && appErr.Err != nil {
			msg = appErr.Err.Error()
		}
	}
	Error(ctx, appErr.Status, appErr.Code, msg)
}

// Abort renders err and stops the handler chain.
func Abort(ctx *gin.Context, err error) {
	Fail(ctx, err)
	ctx.Abort()
}
