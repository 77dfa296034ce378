// Package gui provides the desktop form front-end for the processing
// pipeline. The form collects the same input as the CLI and runs the
// pipeline on a background goroutine so the window stays responsive.
package gui

import (
	"context"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/chenwu/vimeo-uploader/internal/config"
	"github.com/chenwu/vimeo-uploader/internal/driver"
	"github.com/chenwu/vimeo-uploader/internal/request"
)

const aboutText = "Downloads a YouTube video, trims it to a time range, " +
	"and re-uploads the clip to Vimeo."

// formState owns everything the event handlers share: the loaded
// configuration, the chosen thumbnail, and the in-flight cancellation.
// It replaces the process-wide globals of the legacy form.
type formState struct {
	logger zerolog.Logger

	vimeoCfg *config.VimeoConfig
	dirCfg   *config.DirectoryConfig

	thumbnailPath string
	cancelRun     context.CancelFunc
}

// Run builds the form and blocks until the window is closed.
func Run(logger zerolog.Logger) {
	state := &formState{logger: logger.With().Str("component", "gui").Logger()}

	a := app.NewWithID("com.chenwu.vimeo-uploader")
	w := a.NewWindow("Vimeo Uploader")
	w.Resize(fyne.NewSize(640, 480))

	urlEntry := widget.NewEntry()
	urlEntry.SetPlaceHolder("video ID, appended to " + request.WatchURLPrefix)
	startEntry := widget.NewEntry()
	startEntry.SetPlaceHolder("00:00:00")
	endEntry := widget.NewEntry()
	endEntry.SetPlaceHolder("00:00:00")
	resolutionEntry := widget.NewEntry()
	resolutionEntry.SetText(request.DefaultResolution)
	titleEntry := widget.NewEntry()
	titleEntry.SetPlaceHolder("optional; defaults to (CW) plus today's date")

	thumbnailLabel := widget.NewLabel("No thumbnail selected (optional)")
	thumbnailButton := widget.NewButton("Choose image...", func() {
		fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			r.Close()
			state.thumbnailPath = r.URI().Path()
			thumbnailLabel.SetText("Thumbnail: " + state.thumbnailPath)
		}, w)
		fd.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png"}))
		fd.Show()
	})

	statusLabel := widget.NewLabel("")

	var processButton *widget.Button
	processButton = widget.NewButton("Start processing", func() {
		state.process(w, processButton, statusLabel,
			urlEntry.Text, startEntry.Text, endEntry.Text,
			resolutionEntry.Text, titleEntry.Text)
	})

	form := widget.NewForm(
		widget.NewFormItem("Video ID", urlEntry),
		widget.NewFormItem("Start time", startEntry),
		widget.NewFormItem("End time", endEntry),
		widget.NewFormItem("Resolution", resolutionEntry),
		widget.NewFormItem("Title", titleEntry),
	)

	w.SetContent(container.NewVBox(
		form,
		container.NewHBox(thumbnailButton, thumbnailLabel),
		processButton,
		statusLabel,
	))

	w.SetMainMenu(fyne.NewMainMenu(fyne.NewMenu("File",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About", aboutText, w)
		}),
		fyne.NewMenuItem("Import config", func() {
			state.importConfig(w, statusLabel)
		}),
		fyne.NewMenuItem("Quit", func() {
			if state.cancelRun != nil {
				state.cancelRun()
			}
			a.Quit()
		}),
	)))

	w.ShowAndRun()
}

func (s *formState) importConfig(w fyne.Window, status *widget.Label) {
	fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil || r == nil {
			return
		}
		r.Close()
		path := r.URI().Path()

		vimeoCfg, err := config.LoadVimeoConfig(path)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		dirCfg, err := config.LoadDirectoryConfig(path)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}

		s.vimeoCfg = vimeoCfg
		s.dirCfg = dirCfg
		status.SetText("Config imported from " + path)
		s.logger.Info().Str("path", path).Msg("config imported")
	}, w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json", ".yaml", ".yml"}))
	fd.Show()
}

// process validates the form, then runs the pipeline on a background
// goroutine. UI updates from the goroutine go through fyne.Do.
func (s *formState) process(w fyne.Window, button *widget.Button, status *widget.Label,
	videoID, start, end, resolution, title string) {
	if s.vimeoCfg == nil {
		status.SetText("Import a config file first (File > Import config)")
		return
	}

	req, err := request.New(strings.TrimSpace(videoID), start, end, resolution, title, s.thumbnailPath)
	if err != nil {
		dialog.ShowError(err, w)
		return
	}

	d, err := driver.NewDefault(s.logger, s.vimeoCfg, s.dirCfg)
	if err != nil {
		dialog.ShowError(err, w)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel

	button.Disable()
	button.SetText("Processing...")
	status.SetText("Processing " + req.VideoID)

	go func() {
		defer cancel()
		runErr := d.Process(ctx, req)

		fyne.Do(func() {
			button.Enable()
			if runErr != nil {
				button.SetText("Start processing")
				status.SetText("Processing failed")
				dialog.ShowError(runErr, w)
				return
			}
			button.SetText("Processing successful!")
			status.SetText("Done: " + req.Title)
		})
	}()
}
