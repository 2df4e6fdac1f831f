// Package chat provides generic multi-turn chat over the configured model
// providers.
//
// A Service resolves the requested provider, replays the stored history of the
// conversation as context, and records both the user prompt and the model's
// reply. AI replies carry provider, model, temperature, token counts and
// response time as message metadata.
//
// Scenarios are presets (coding, writing, analysis) that supply a system
// prompt and model defaults for fields a request leaves empty.
package chat
