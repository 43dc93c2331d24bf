package services

// resetPasswordEmailHTML is the password-recovery template. Placeholders:
// recipient name, reset URL, reset URL (plain), current year.
const resetPasswordEmailHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; }
  .content { padding: 20px; background-color: #f9f9f9; }
  .button { display: inline-block; padding: 10px 20px; margin: 20px 0; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; }
  .footer { text-align: center; padding: 20px; font-size: 12px; color: #777; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Recuperación de Contraseña</h1>
    </div>
    <div class="content">
      <p>Hola <strong>%s</strong>,</p>
      <p>Has solicitado recuperar tu contraseña para el sistema de Inventario TI.</p>
      <p>Por favor haz clic en el siguiente botón para resetear tu contraseña:</p>
      <p style="text-align: center;">
        <a href="%s" class="button">Resetear Contraseña</a>
      </p>
      <p>O copia y pega esta URL en tu navegador:</p>
      <p style="word-break: break-all; background-color: #e9e9e9; padding: 10px;">%s</p>
      <p><strong>Este enlace expira en 10 minutos.</strong></p>
      <p>Si no solicitaste esto, por favor ignora este email y tu contraseña permanecerá sin cambios.</p>
    </div>
    <div class="footer">
      <p>Este es un email automático, por favor no respondas.</p>
      <p>&copy; %d Inventario TI. Todos los derechos reservados.</p>
    </div>
  </div>
</body>
</html>`
