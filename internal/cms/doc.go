// Package cms is the HTTP client for the case management system.
//
// The client implements reconcile.NoteAdder: it posts one note per call to
// /cases/{case_id}/notes and treats any 2xx response as confirmation that the
// note exists in the CMS. Every call carries an explicit timeout so a hung CMS
// never stalls a reconciliation pass.
//
//	client, err := cms.NewClient(cms.Config{
//		BaseURL: "https://cms.transcon.example/api",
//		Token:   os.Getenv("CMSLEDGER_CMS_TOKEN"),
//		Timeout: 30 * time.Second,
//	})
//	err = client.AddNote(ctx, "1001", "STATUS REQUEST SENT TO ...", false)
package cms
