// Package pdfqa wires the document question-answering services together.
//
// An App owns the document registry, the ingestion pipeline, the answerer,
// the chat service with its BadgerDB conversation store and the model
// providers. It builds the HTTP server and the reindexer over them.
//
//	app, err := pdfqa.New(ctx,
//		pdfqa.WithUploadDir("uploads"),
//		pdfqa.WithProvider(ai.NewConfig(ai.WithProvider("gemini"), ai.WithAPIKey(key))),
//	)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	res, err := app.Pipeline().IngestFile(ctx, "report.pdf", "")
//	answer, _, err := app.Ask(ctx, res.Document.ID, "What changed?", search.Options{}, nil)
package pdfqa
