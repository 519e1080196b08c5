// Package render builds the viewer HTML page from a template.
//
// The template is plain HTML carrying literal placeholder tokens (_TITLE_,
// _DELAY_SECS_, _NAME_, _WIDTH_, _HEIGHT_, _IMAGE_FNAME_) that are replaced
// verbatim per request. The template file is user-supplied and hand-edited;
// the token scheme keeps it editable with no Go knowledge.
//
// The on-disk template, when configured, is re-read on every render so that
// edits are picked up live. The embedded default page is used otherwise.
package render
