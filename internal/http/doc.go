// Package httpapp provides the HTTP server for the presentation service.
//
//	@title						Presentation Slide API
//	@version					1.0
//	@description				Append-only slide service: POST slides into a presentation
//	@description				identified by an opaque id, then download the resulting
//	@description				.pptx file.
//	@description
//	@description				A presentation is created lazily on the first create-slide
//	@description				call for a never-seen id. Slides cannot be edited or removed;
//	@description				order of slides is the order of successful appends.
//
//	@contact.name				dify-pptx-app
//	@license.name				MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Shared-secret API key configured at startup
//
//	@tag.name					Slides
//	@tag.description			Append slides to a presentation.
//
//	@tag.name					Presentations
//	@tag.description			Download the presentation container.
package httpapp
