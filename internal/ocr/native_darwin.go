//go:build darwin

package ocr

import (
	"context"
	"os/exec"
)

const nativeEngine = EngineApple

const appleOCRScript = `
import Foundation
import Vision
import AppKit

let args = CommandLine.arguments
guard args.count > 1,
      let image = NSImage(contentsOfFile: args[1]),
      let cg = image.cgImage(forProposedRect: nil, context: nil, hints: nil) else {
    FileHandle.standardError.write("cannot load image\n".data(using: .utf8)!)
    exit(1)
}
let request = VNRecognizeTextRequest()
request.recognitionLevel = .accurate
request.usesLanguageCorrection = true
if args.count > 2 && !args[2].isEmpty {
    request.recognitionLanguages = [args[2]]
}
try VNImageRequestHandler(cgImage: cg, options: [:]).perform([request])
let lines = (request.results ?? []).compactMap { $0.topCandidates(1).first?.string }
print(lines.joined(separator: "\n"))
`

func nativeCommand(ctx context.Context, path, language string) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, "swift", "-e", appleOCRScript, "--", path, appleLanguageTag(language)), nil
}

func appleLanguageTag(lang string) string {
	switch lang {
	case "", "eng":
		return "en-US"
	case "deu":
		return "de-DE"
	case "fra":
		return "fr-FR"
	default:
		return lang
	}
}
