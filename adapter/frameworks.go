package adapter

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/labstack/echo/v4"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/yourusername/serverrequest/core"
)

// Gin serves h as a gin handler. Route params become request attributes.
//
// Example:
//
//	r := gin.New()
//	r.GET("/users/:id", adapter.Gin(showUser))
func Gin(h core.Handler) gin.HandlerFunc {
	config := DefaultConfig()

	return func(c *gin.Context) {
		attrs := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			attrs[p.Key] = p.Value
		}

		serve(c.Writer, c.Request, h, config, attrs)
		c.Abort()
	}
}

// Echo serves h as an echo handler. Route params become request
// attributes. Errors are answered by the adapter, never by echo's
// HTTPErrorHandler.
func Echo(h core.Handler) echo.HandlerFunc {
	config := DefaultConfig()

	return func(c echo.Context) error {
		names := c.ParamNames()
		values := c.ParamValues()
		attrs := make(map[string]string, len(names))
		for i, name := range names {
			if i < len(values) {
				attrs[name] = values[i]
			}
		}

		serve(c.Response(), c.Request(), h, config, attrs)
		return nil
	}
}

// Fiber serves h as a fiber handler through the net/http adaptor.
// Route params become request attributes.
func Fiber(h core.Handler) fiber.Handler {
	config := DefaultConfig()

	return func(c *fiber.Ctx) error {
		// fiber params alias its request buffer
		attrs := make(map[string]string)
		for k, v := range c.AllParams() {
			attrs[strings.Clone(k)] = strings.Clone(v)
		}
		return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve(w, r, h, config, attrs)
		})(c)
	}
}

// FastHTTP serves h as a fasthttp request handler.
func FastHTTP(h core.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(Handler(h, DefaultConfig()))
}
