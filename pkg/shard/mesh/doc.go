// Package mesh is the cooperative scheduler wires run on.
//
// A Mesh resumes each scheduled wire once per pass. Wires suspended in
// unit.RunBlocking or Context.Suspend are skipped until they are ready, so a
// slow blocking task on one wire never holds back the others. Stopping a
// wire aborts it at its next suspension point and cleans it up; blocking
// work it left behind is detached.
package mesh
