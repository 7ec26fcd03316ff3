// Package encoderctl supervises the Adobe Media Encoder processes proxyoda
// depends on.
//
// ProcessController is the OS capability boundary (is a process running,
// terminate it, spawn a detached one). OSController implements it with
// tasklist/taskkill on Windows and pgrep/pkill elsewhere. Supervisor uses the
// controller plus the web service status probe to bring ame_webservice_console
// up and wait, with exponential backoff, until GET /server reports online.
package encoderctl
