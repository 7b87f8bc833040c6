// Package script synthesizes the shell script that installs ComfyUI, the
// ComfyUI-Manager extension and the configured model artifacts on a freshly
// provisioned instance.
//
// Synthesis is pure: the same configuration always yields the same bytes, so
// the script printed by "comfyprov script" is exactly what a run uploads.
package script
