// Package audiobook converts text into one audio file.
//
// A conversion runs in stages:
//
//	idle -> segmenting -> synthesizing -> assembling -> cleaning -> done
//
// The text is split into segments of at most SegmentLimit characters.
// Each segment is synthesized by a speech.Service into an intermediate
// file named after the destination:
//
//	book.pdf  ->  book_0001.mp3, book_0002.mp3, ...  ->  book.mp3
//
// The intermediate files are joined in index order into the destination
// and removed afterwards. A single segment is moved into place instead.
// The first failing segment stops the conversion; files written before
// the failure are left on disk and listed in the Report.
//
// Basic usage:
//
//	p := audiobook.New(svc, speech.Voice{Provider: "polly", ID: "Joanna"})
//	res, err := p.ConvertFile(ctx, extract.DefaultMux, "book.pdf")
//	if err != nil {
//	    if f, ok := audiobook.AsFailure(err); ok {
//	        log.Printf("failed while %s: %v", f.Stage, f.Err)
//	    }
//	    return err
//	}
//	fmt.Println(res.Final.Path, res.Final.Duration)
//
// Progress is reported to an Observer; ChanObserver adapts a channel.
// Finished conversions, failed or not, are passed to a Recorder as a
// Report.
package audiobook
