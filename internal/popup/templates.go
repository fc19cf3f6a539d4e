package popup

// tmplPopup is the marker popup body.
const tmplPopup = `<div class="popup-content">
{{- if .ImageURL}}
<div class="main-image mb-3"><img src="{{.ImageURL}}" alt="{{.Name}}" class="img-fluid rounded"></div>
{{- end}}
<h5>{{.Name}} ({{.Year}})</h5>
<p>{{.Description}}</p>
<p><strong>Participants:</strong> {{.Participants}}</p>
<p><strong>Résultat:</strong> {{.Outcome}}</p>
{{- if .Media}}
<div class="media-gallery mt-2"><div class="media-content">
{{- range .Media}}
{{- if .IsImage}}
<div class="media-item"><img src="{{.URL}}" alt="Image historique" class="img-fluid rounded" onerror="this.style.display='none'"></div>
{{- else if .IsVideo}}
<div class="media-item"><video controls class="img-fluid rounded"><source src="{{.URL}}" type="{{.MIMEType}}">Votre navigateur ne supporte pas la lecture de vidéos.</video></div>
{{- end}}
{{- end}}
</div></div>
{{- end}}
{{- if .Context}}
<div class="mt-2"><strong>Contexte historique:</strong><p>{{.Context}}</p></div>
{{- end}}
{{- if .Sources}}
<div class="mt-2"><strong>Sources:</strong><br><div class="d-flex flex-column gap-1">
{{- range .Sources}}
<a href="{{.URL}}" target="_blank" rel="noopener" class="btn btn-sm btn-outline-primary"><i class="fas fa-external-link-alt"></i> {{.Label}}</a>
{{- end}}
</div></div>
{{- end}}
{{- if .ShowEnrich}}
<button type="button" data-action="enrich" data-battle-id="{{.ID}}" class="btn btn-sm btn-outline-secondary mt-2"><i class="fas fa-info-circle"></i> Plus d'informations</button>
{{- end}}
</div>`
