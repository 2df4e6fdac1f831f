// Package server is the HTTP boundary of pdfqa, built on gin.
//
// Routes:
//
//	POST /api/pdf/upload                    multipart "pdfFile", at most 10 MB
//	POST /api/pdf/ask                       {pdfId, question, provider?, model?, temperature?}
//	GET  /api/pdf/list
//	POST /api/chat                          {userPrompt, provider?, model?, systemPrompt?, temperature?, conversationId?}
//	POST /api/chat/generate                 {scenario, context: {userPrompt, ...}}
//	POST /api/chat/scenario/:name           {userPrompt, ...}
//	GET  /api/chat/scenarios
//	GET  /api/chat/providers
//	POST /api/chat/conversations            {title?}
//	GET  /api/chat/conversations
//	GET  /api/chat/conversations/:id/messages
//	GET  /healthz
//
// Every response is a JSON object with a boolean "success" field. Failures
// carry a "message", the known ids as "availablePdfs" when a document is
// missing, and the internal error text as "error" outside production. Status
// codes follow the error kind: validation and parse failures are 400, missing
// resources 404, provider failures 502 and everything else 500.
package server
