// Package script submits jobs through Adobe Media Encoder's console mode.
//
// When AME is closed its web service is unavailable, but the application
// can be launched with an ExtendScript file that adds every job to the batch
// queue. Generate renders that script and Submitter writes it to the script
// directory and launches AME with `--console es.processFile <script>`.
package script
