//go:build windows

package ocr

import (
	"context"
	"os/exec"
	"strings"
)

const nativeEngine = EngineWindows

// Loads the file into a SoftwareBitmap and runs Windows.Media.Ocr over it.
const windowsOCRScript = `
$ErrorActionPreference = 'Stop'
Add-Type -AssemblyName System.Runtime.WindowsRuntime
$null = [Windows.Storage.StorageFile, Windows.Storage, ContentType = WindowsRuntime]
$null = [Windows.Media.Ocr.OcrEngine, Windows.Foundation, ContentType = WindowsRuntime]
$null = [Windows.Graphics.Imaging.BitmapDecoder, Windows.Graphics, ContentType = WindowsRuntime]
$asTask = ([System.WindowsRuntimeSystemExtensions].GetMethods() | Where-Object {
    $_.Name -eq 'AsTask' -and $_.GetParameters().Count -eq 1 -and
    $_.GetParameters()[0].ParameterType.Name -eq 'IAsyncOperation` + "`" + `1' })[0]
function Await($op, $type) {
    $task = $asTask.MakeGenericMethod($type).Invoke($null, @($op))
    $task.Wait() | Out-Null
    $task.Result
}
$file = Await ([Windows.Storage.StorageFile]::GetFileFromPathAsync($args[0])) ([Windows.Storage.StorageFile])
$stream = Await ($file.OpenAsync([Windows.Storage.FileAccessMode]::Read)) ([Windows.Storage.Streams.IRandomAccessStream])
$decoder = Await ([Windows.Graphics.Imaging.BitmapDecoder]::CreateAsync($stream)) ([Windows.Graphics.Imaging.BitmapDecoder])
$bitmap = Await ($decoder.GetSoftwareBitmapAsync()) ([Windows.Graphics.Imaging.SoftwareBitmap])
$engine = $null
if ($args[1]) {
    $engine = [Windows.Media.Ocr.OcrEngine]::TryCreateFromLanguage([Windows.Globalization.Language]::new($args[1]))
}
if ($engine -eq $null) { $engine = [Windows.Media.Ocr.OcrEngine]::TryCreateFromUserProfileLanguages() }
$result = Await ($engine.RecognizeAsync($bitmap)) ([Windows.Media.Ocr.OcrResult])
$result.Text
`

func nativeCommand(ctx context.Context, path, language string) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive",
		"-Command", "& {"+windowsOCRScript+"}", path, windowsLanguageTag(language)), nil
}

// windowsLanguageTag maps tesseract language codes to BCP-47 tags.
func windowsLanguageTag(lang string) string {
	switch strings.ToLower(lang) {
	case "", "eng":
		return "en-US"
	case "deu":
		return "de-DE"
	case "fra":
		return "fr-FR"
	case "spa":
		return "es-ES"
	default:
		return lang
	}
}
