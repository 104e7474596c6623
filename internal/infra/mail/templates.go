package mail

import "text/template"

var pixPendingTemplate = template.Must(template.New("pix_pending").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Olá, {{.StudentName}}!</h2>
	<p>Recebemos seu pedido de assinatura do plano <strong>{{.PlanName}}</strong>.</p>
	<p>
		Valor original: R$ {{printf "%.2f" .Amount}}<br>
		Desconto PIX: R$ {{printf "%.2f" .Discount}}<br>
		<strong>Total a pagar: R$ {{printf "%.2f" .FinalAmount}}</strong>
	</p>
	<p>Copie o código abaixo e pague no app do seu banco:</p>
	<p style="background: #f4f4f4; padding: 12px; word-break: break-all; font-family: monospace;">
		{{.CopyPasteCode}}
	</p>
	<p>O código expira em <strong>{{.ExpiresAt.Format "02/01/2006 15:04"}}</strong>.</p>
	<p>Assim que o pagamento for confirmado, seu acesso é liberado automaticamente.</p>
</body>
</html>
`))

var pixExpiredTemplate = template.Must(template.New("pix_expired").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Olá, {{.StudentName}}!</h2>
	<p>O código PIX da sua assinatura do plano <strong>{{.PlanName}}</strong> expirou.</p>
	<p>Não se preocupe: basta iniciar um novo checkout para gerar outro código.</p>
</body>
</html>
`))

var confirmedTemplate = template.Must(template.New("confirmed").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Pagamento confirmado, {{.StudentName}}! 🎉</h2>
	<p>Sua assinatura do plano <strong>{{.PlanName}}</strong> está ativa.</p>
	<p>
		Valor pago: R$ {{printf "%.2f" .Amount}}<br>
		Válida até: <strong>{{.ExpiresAt.Format "02/01/2006"}}</strong>
	</p>
	<p>Bons estudos!</p>
</body>
</html>
`))
