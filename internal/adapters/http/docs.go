package http

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
)

// OpenAPIPath is where the served OpenAPI document is read from, relative to
// the working directory.
var OpenAPIPath = "api/openapi.yaml"

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>PropertyPulse API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="docs"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: '/docs/openapi.yaml', dom_id: '#docs', deepLinking: true });
  </script>
</body>
</html>`

// SetupDocs serves Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml. The document is read once; when it is missing the
// routes answer 404.
func SetupDocs(app *fiber.App) {
	doc, err := os.ReadFile(OpenAPIPath)
	if err != nil {
		slog.Warn("openapi document not found, /docs disabled", "path", OpenAPIPath, "error", err)
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "api documentation not available")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(docsPage)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(doc)
	})
}
